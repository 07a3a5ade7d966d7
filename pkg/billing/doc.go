/*
Package billing meters running workloads and turns usage into invoices.

Every five minutes the accountant writes one usage record per running
container (compute hours) and per time-metered managed service
(database, nosql, secrets). Storage volume and queue request counts are
not observable from the catalog, so those types appear in the rate
table but produce no sweep records.

On the first day of each month the previous month's records roll into
a pending invoice with a per-type cost breakdown and a 30 day due
date. Generation is idempotent per period.
*/
package billing
