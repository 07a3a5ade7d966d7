/*
Package router forwards data-plane requests to managed services.

Each operation resolves the target service in the catalog first: an
unknown or wrong-kind id fails with NotFoundError, and a service the
catalog marks unhealthy fails with NotHealthyError before any network
call is made. Healthy services are contacted directly at their
published ip:port; the service's response comes back wrapped in an
envelope that names the service and timestamps the forward.

Per-kind surfaces:

  - bucket: file listing, multipart upload, download, file delete
  - sql: query, table listing, schema, config updates, stats, with an
    x-signature header on every request
  - nosql: collections, entity save/get/update/delete, field query, scan
  - queue: add, read (peek with a limit), message delete
  - secrets: store, get, list, delete; a secret the service does not
    have yields a null secret rather than an error

Removal stops the backing container on its node (and deletes it for
bucket services, which hold user data) on a best-effort basis, then
always removes the catalog rows, so a dead node cannot pin a ghost
service.
*/
package router
