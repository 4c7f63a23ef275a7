// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the printing domain stays free
// of ORM tags; each model has ToDomain and ...FromDomain mappers.
package models
