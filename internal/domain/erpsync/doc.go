// Package erpsync contains the domain model for pulling records out of the
// upstream ERP and merging them into the portal's relational store.
//
// The package follows the Ports and Adapters pattern used elsewhere in the
// domain layer:
//
//   - Records (Customer, ShipmentETA, PaymentInstrument, CustomerIdentifier)
//     are the typed, validated form of rows returned by the ERP.
//   - Store, CursorRepository and RunRepository are the persistence ports.
//   - RemoteQuerier and ExportFiles are the ports to the ERP itself.
//   - SyncError carries a stable Kind so callers can tell transient,
//     remote, malformed and persistence failures apart.
//
// A reconcile is always two-phase: rows in the run's Scope that are missing
// from the snapshot are soft-deleted first, then the snapshot is upserted.
// A scope with no values means incremental merge and skips the first phase.
package erpsync
