// Package models defines domain entities and persistence interfaces for the songstream backend.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Track] : Catalog track with artists and album artwork, in the shape served to clients
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Account] : An identity authenticated through the catalog provider, its OAuth tokens and current session token
//
// All persistent entities implement the [Model] interface providing ID generation, timestamps, and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
