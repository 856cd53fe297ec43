// Package store defines the account model and the persistence contract used
// by the goAccount engine.
//
// Implementations live in sub-packages: memory (embedded use and tests),
// redisstore (Redis hashes with Lua-scripted conditional updates) and
// mongostore (a MongoDB "users" collection). storetest holds the behavioural
// suite every implementation runs.
package store
