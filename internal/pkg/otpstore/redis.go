package otpstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// consumeScript compares ARGV[1] with the stored code and deletes it on match.
// With ARGV[2] > 0 mismatches are counted in KEYS[2]; reaching the limit
// deletes both keys. Returns a Result value.
var consumeScript = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if not stored then
  return 0
end
if stored == ARGV[1] then
  redis.call('DEL', KEYS[1], KEYS[2])
  return 1
end
local limit = tonumber(ARGV[2])
if limit > 0 then
  local n = redis.call('INCR', KEYS[2])
  if n == 1 then
    local ttl = redis.call('PTTL', KEYS[1])
    if ttl > 0 then
      redis.call('PEXPIRE', KEYS[2], ttl)
    end
  end
  if n >= limit then
    redis.call('DEL', KEYS[1], KEYS[2])
    return 3
  end
end
return 2
`)

// Redis is a Store backed by Redis keys with native expiry.
//
// Keys for one identifier share a hash tag so they land on the same cluster slot.
type Redis struct {
	client  redis.UniversalClient
	opts    Options
	keyFunc func(string) string
}

// NewRedis returns a Redis store. keyFunc maps an identifier to the opaque
// part of its keys; nil uses the identifier as-is.
func NewRedis(client redis.UniversalClient, opts Options, keyFunc func(string) string) *Redis {
	if keyFunc == nil {
		keyFunc = func(s string) string { return s }
	}
	return &Redis{client: client, opts: opts.withDefaults(), keyFunc: keyFunc}
}

func (r *Redis) keys(identifier string) (code, attempts, grant string) {
	tag := "{" + r.keyFunc(identifier) + "}"
	return "otp:" + tag + ":code", "otp:" + tag + ":attempts", "otp:" + tag + ":grant"
}

func (r *Redis) Put(ctx context.Context, identifier, code string) error {
	codeKey, attemptsKey, _ := r.keys(identifier)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey, code, r.opts.CodeTTL)
		pipe.Del(ctx, attemptsKey)
		return nil
	})
	return err
}

func (r *Redis) Get(ctx context.Context, identifier string) (string, bool, error) {
	codeKey, _, _ := r.keys(identifier)

	code, err := r.client.Get(ctx, codeKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (r *Redis) Consume(ctx context.Context, identifier, code string) (Result, error) {
	codeKey, attemptsKey, _ := r.keys(identifier)

	n, err := consumeScript.Run(ctx, r.client, []string{codeKey, attemptsKey}, code, r.opts.MaxAttempts).Int()
	if err != nil {
		return ResultNotFound, err
	}

	switch Result(n) {
	case ResultMatched, ResultMismatch, ResultLocked:
		return Result(n), nil
	default:
		return ResultNotFound, nil
	}
}

func (r *Redis) Grant(ctx context.Context, identifier string) error {
	_, _, grantKey := r.keys(identifier)
	return r.client.Set(ctx, grantKey, "1", r.opts.GrantTTL).Err()
}

func (r *Redis) ConsumeGrant(ctx context.Context, identifier string) (bool, error) {
	_, _, grantKey := r.keys(identifier)

	err := r.client.GetDel(ctx, grantKey).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
