// Package models contains the GORM persistence models for the portal tables
// the sync pipeline writes. They are kept apart from the erpsync domain types
// so the domain stays free of ORM tags; constructors map domain rows into
// models and each model names the portal-owned columns an upsert must not
// overwrite.
//
//   - erpsync.go: ERP-mirrored rows (customers, shipment ETAs, payment
//     instruments, customer identifiers)
//   - sync_run.go: run history and per-job cursors
package models
