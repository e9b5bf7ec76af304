// Package models defines the core domain models for tripmate.
//
// # Models
//
//   - User: registered account, identified by a UUID
//   - Trip: a planned group journey owned by a creator
//   - TripParticipant: membership of a user in a trip (pending, accepted, rejected)
//   - Expense: one real-world cost paid by one participant
//   - ExpenseSplit: one participant's share of an expense
//
// Relationships use ID strings instead of pointers. Amounts are plain float64 values
// in a currency-agnostic unit; timestamps are unix seconds.
package models
