/*
Package launcher starts managed services (bucket, db, nosql, queue,
secrets) on worker nodes.

A launch walks a fixed sequence: the dispatcher picks a healthy node,
the node's kind-specific launch endpoint is invoked (the SQL endpoint
carries resource limits plus instance and database names), and the
container row is written to the catalog immediately. From there the
launcher polls the container's port bindings once a second for up to a
minute until the kind's internal port (8000-8040) is mapped to a host
port. Port payloads vary across node builds, so extraction tries the
exact "8010/tcp" key first, then any key with the same port number,
then any usable binding.

Only when a host port appears does the service row get published, with
running status and the externally reachable ip:port. A timeout returns
NotReadyError and leaves the container row behind; operators can
inspect the container or delete it, the catalog never points at a
service that was not observed ready.
*/
package launcher
