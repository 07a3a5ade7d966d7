/*
Package terminal bridges client WebSockets to container terminals.

The proxy accepts the client's upgrade first, resolves the node in the
catalog, then dials ws(s)://{node}/ws/terminal/{container} and runs two
copy loops, one per direction. Messages pass through unmodified. When
either side drops, both connections are closed and the handler returns;
the websocket_connections gauge tracks open bridges.

A missing node closes the client with policy-violation (1008); a node
that cannot be reached closes with internal-error (1011).
*/
package terminal
