// Command driveline is the operator CLI for the driveline ingestion daemon:
// queue inspection and edits, manual cycle runs, config management, and
// notification tests.
package main
