package redisstore

import "github.com/redis/go-redis/v9"

// Index keys are read in Go before a script runs; each script re-verifies
// that the index still points at the expected account and that the hash
// fields still satisfy the precondition before it writes anything.

// insertLua creates an account hash and its unique indexes.
// KEYS[1] = account hash
// KEYS[2] = username index
// KEYS[3] = email index
// KEYS[4] = confirmation index (ignored when ARGV[7] is empty)
// KEYS[5] = pending-confirmation sorted set
// ARGV = id, username, email, passwordHash, role, isConfirmed,
//
//	confirmationToken, confirmationExpires, createdAt, updatedAt, nowMs
var insertLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 or redis.call('EXISTS', KEYS[3]) == 1 then
  return {err='conflict'}
end

redis.call('HSET', KEYS[1],
  'id', ARGV[1],
  'username', ARGV[2],
  'email', ARGV[3],
  'passwordHash', ARGV[4],
  'role', ARGV[5],
  'isConfirmed', ARGV[6],
  'confirmationToken', ARGV[7],
  'confirmationExpires', ARGV[8],
  'resetToken', '',
  'resetTokenExpires', '',
  'createdAt', ARGV[9],
  'updatedAt', ARGV[10])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[1])

if ARGV[7] ~= '' and ARGV[6] ~= '1' then
  local ttl = tonumber(ARGV[8]) - tonumber(ARGV[11])
  if ttl < 1 then ttl = 1 end
  redis.call('SET', KEYS[4], ARGV[1], 'PX', ttl)
  redis.call('ZADD', KEYS[5], ARGV[8], ARGV[1])
end
return 1
`)

// setTokenLua swaps the confirmation or reset token of an account.
// KEYS[1] = account hash
// KEYS[2] = index of the current token (ignored when ARGV[2] is empty)
// KEYS[3] = index of the new token
// KEYS[4] = pending-confirmation sorted set (ignored when ARGV[7] is "0")
// ARGV[1] = account id
// ARGV[2] = token key currently expected in the hash
// ARGV[3] = new token key
// ARGV[4] = new expiry (unix ms)
// ARGV[5] = now (unix ms)
// ARGV[6] = field prefix ("confirmation" or "reset")
// ARGV[7] = "1" when the account must be unconfirmed
//
// Returns 1, or error string "not_found" / "stale".
var setTokenLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end

local tokenField = 'resetToken'
local expiresField = 'resetTokenExpires'
if ARGV[6] == 'confirmation' then
  tokenField = 'confirmationToken'
  expiresField = 'confirmationExpires'
end

local f = redis.call('HMGET', KEYS[1], 'isConfirmed', tokenField)
if ARGV[7] == '1' and f[1] == '1' then
  return {err='not_found'}
end

local current = f[2] or ''
if current ~= ARGV[2] then
  return {err='stale'}
end
if current ~= '' then
  redis.call('DEL', KEYS[2])
end

redis.call('HSET', KEYS[1], tokenField, ARGV[3], expiresField, ARGV[4], 'updatedAt', ARGV[5])

local ttl = tonumber(ARGV[4]) - tonumber(ARGV[5])
if ttl < 1 then ttl = 1 end
redis.call('SET', KEYS[3], ARGV[1], 'PX', ttl)

if ARGV[7] == '1' then
  redis.call('ZADD', KEYS[4], ARGV[4], ARGV[1])
end
return 1
`)

// consumeConfirmationLua confirms the account if its confirmation token
// still matches and is unexpired.
// KEYS[1] = confirmation index
// KEYS[2] = account hash
// KEYS[3] = pending-confirmation sorted set
// ARGV[1] = account id, ARGV[2] = token key, ARGV[3] = now (unix ms)
//
// Returns the account hash as a flat field/value list, or "not_found".
var consumeConfirmationLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
  return {err='not_found'}
end

local f = redis.call('HMGET', KEYS[2], 'confirmationToken', 'confirmationExpires', 'isConfirmed')
if f[1] ~= ARGV[2] or f[3] == '1' then
  return {err='not_found'}
end

local expiresAt = tonumber(f[2])
if expiresAt == nil or expiresAt <= tonumber(ARGV[3]) then
  return {err='not_found'}
end

redis.call('HSET', KEYS[2], 'isConfirmed', '1', 'confirmationToken', '', 'confirmationExpires', '', 'updatedAt', ARGV[3])
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[3], ARGV[1])
return redis.call('HGETALL', KEYS[2])
`)

// consumeResetLua replaces the password hash if the reset token still
// matches and is unexpired.
// KEYS[1] = reset index
// KEYS[2] = account hash
// ARGV[1] = account id, ARGV[2] = digest, ARGV[3] = new password hash,
// ARGV[4] = now (unix ms)
var consumeResetLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
  return {err='not_found'}
end

local f = redis.call('HMGET', KEYS[2], 'resetToken', 'resetTokenExpires')
if f[1] ~= ARGV[2] then
  return {err='not_found'}
end

local expiresAt = tonumber(f[2])
if expiresAt == nil or expiresAt <= tonumber(ARGV[4]) then
  return {err='not_found'}
end

redis.call('HSET', KEYS[2], 'passwordHash', ARGV[3], 'resetToken', '', 'resetTokenExpires', '', 'updatedAt', ARGV[4])
redis.call('DEL', KEYS[1])
return redis.call('HGETALL', KEYS[2])
`)

// updateHashLua sets the password hash of an existing account.
// KEYS[1] = account hash
// ARGV[1] = password hash, ARGV[2] = now (unix ms)
var updateHashLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
redis.call('HSET', KEYS[1], 'passwordHash', ARGV[1], 'updatedAt', ARGV[2])
return 1
`)

// purgeLua deletes an unconfirmed account whose confirmation expired.
// KEYS[1] = account hash
// KEYS[2] = username index
// KEYS[3] = email index
// KEYS[4] = confirmation index
// KEYS[5] = reset index
// KEYS[6] = pending-confirmation sorted set
// ARGV[1] = account id, ARGV[2] = expected confirmation key, ARGV[3] = now (unix ms)
//
// Returns 1 when deleted, 0 when the account no longer qualifies.
var purgeLua = redis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'isConfirmed', 'confirmationToken', 'confirmationExpires')
if f[1] == false then
  redis.call('ZREM', KEYS[6], ARGV[1])
  return 0
end
if f[1] == '1' then
  redis.call('ZREM', KEYS[6], ARGV[1])
  return 0
end
if (f[2] or '') ~= ARGV[2] then
  return 0
end

local expiresAt = tonumber(f[3])
if expiresAt ~= nil and expiresAt > tonumber(ARGV[3]) then
  return 0
end

redis.call('DEL', KEYS[1], KEYS[2], KEYS[3], KEYS[4], KEYS[5])
redis.call('ZREM', KEYS[6], ARGV[1])
return 1
`)
