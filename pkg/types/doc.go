/*
Package types defines the catalog entities shared across the control
plane.

The three core records mirror the fleet: Node (a registered worker and
its liveness), Container (a workload dispatched to a node on behalf of
a user) and Service (a managed instance of one of the five kinds:
bucket, db, nosql, queue, secrets). UsageRecord and Invoice carry the
billing trail derived from them.

Each ServiceKind knows its well-known internal port and the display
name API messages use. Launch payloads (LaunchRequest,
ServiceLaunchRequest) and the launch result live here too so the
dispatcher, launcher and front door agree on one wire shape.

All types serialize to JSON with the field names the HTTP API exposes;
the catalog stores the same encoding.
*/
package types
