// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts to and from its
// domain counterpart with ToDomain and a FromDomain constructor.
//
//   - base.go: identity, timestamp and version columns (AggregateModel)
//   - purchasing.go: challans, purchase bills, payment history
//   - inventory.go: stock items and movements
//   - outbox.go: events awaiting delivery
package models
