package neighcache

import (
	"errors"
	"time"
)

// Config holds the tunable knobs exposed to applications. All fields are
// validated by Validate before a Cache will accept them; out-of-range
// values are rejected at the configuration call rather than silently
// clamped, leaving prior state unchanged.
type Config struct {
	// Capacity is the fixed number of entries in the pool, 1..65535.
	Capacity int
	// CacheTimeout is the Renew timer period, 60s..600s.
	CacheTimeout time.Duration
	// PendingThreshold bounds the per-entry pending FIFO length. Must not
	// exceed the owning interface's TX buffer capacity; that bound is
	// enforced by the caller supplying TotalTXBuffers.
	PendingThreshold int
	// AccessedPromotionThreshold is the lookup count before MRU promotion
	// fires, 10..65000.
	AccessedPromotionThreshold uint32
	// RequestRetryTimeout is the Pending retry interval, 1s..10s.
	RequestRetryTimeout time.Duration
	// RequestMaxRetries is the number of retries after the initial request
	// before a Pending entry is freed, 0..5 (max attempts is one more than
	// this).
	RequestMaxRetries uint8
	// RenewMaxRetries is the number of unicast confirmation probes allowed
	// from Renew before the entry is freed. The original source's default
	// is 15+1 (see original_source/IP/IPv4/net_arp.h).
	RenewMaxRetries uint8
	// AddressFilterEnabled toggles the stricter receive-path policy that
	// rejects any unicast request not addressed to our hardware address.
	AddressFilterEnabled bool
	// TotalTXBuffers is the owning interface's transmit buffer capacity,
	// the ceiling PendingThreshold may not exceed.
	TotalTXBuffers int
}

var (
	ErrInvalidCapacity      = errors.New("neighcache: capacity must be 1..65535")
	ErrInvalidCacheTimeout  = errors.New("neighcache: cache timeout must be 60s..600s")
	ErrInvalidPendingThresh = errors.New("neighcache: pending threshold out of range")
	ErrInvalidAccessedThresh = errors.New("neighcache: accessed-promotion threshold must be 10..65000")
	ErrInvalidRetryTimeout  = errors.New("neighcache: request retry timeout must be 1s..10s")
	ErrInvalidMaxRetries    = errors.New("neighcache: request max retries must be 0..5")
	ErrInvalidRenewMaxRetries = errors.New("neighcache: renew max retries must be 0..31")
)

// Validate rejects any knob outside its documented range. It never
// clamps: a rejected Config leaves the caller's prior configuration
// unchanged.
func (c Config) Validate() error {
	if c.Capacity < 1 || c.Capacity > 65535 {
		return ErrInvalidCapacity
	}
	if c.CacheTimeout < 60*time.Second || c.CacheTimeout > 600*time.Second {
		return ErrInvalidCacheTimeout
	}
	if c.PendingThreshold < 0 || (c.TotalTXBuffers > 0 && c.PendingThreshold > c.TotalTXBuffers) {
		return ErrInvalidPendingThresh
	}
	if c.AccessedPromotionThreshold < 10 || c.AccessedPromotionThreshold > 65000 {
		return ErrInvalidAccessedThresh
	}
	if c.RequestRetryTimeout < time.Second || c.RequestRetryTimeout > 10*time.Second {
		return ErrInvalidRetryTimeout
	}
	if c.RequestMaxRetries > 5 {
		return ErrInvalidMaxRetries
	}
	if c.RenewMaxRetries > 31 {
		return ErrInvalidRenewMaxRetries
	}
	return nil
}

// DefaultConfig mirrors the defaults of the original source
// (original_source/IP/IPv4/net_arp.h): 10 minute cache timeout, 3 retries,
// a 2-buffer pending threshold, accessed threshold of 100, 5 second retry
// timeout and 16 renew attempts (15 retries + the initial probe).
func DefaultConfig() Config {
	return Config{
		Capacity:                   64,
		CacheTimeout:               10 * time.Minute,
		PendingThreshold:           2,
		AccessedPromotionThreshold: 100,
		RequestRetryTimeout:        5 * time.Second,
		RequestMaxRetries:          3,
		RenewMaxRetries:            16,
	}
}
