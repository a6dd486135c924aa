// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides generic type pooling and the [*bytes.Buffer] pool used for request
// bodies and encoded responses.
package pool

import (
	"bytes"
	"sync"
)

// MaxBufferSize is the largest buffer capacity [Bytes] keeps. Larger buffers are dropped
// so one big request does not pin its memory.
const MaxBufferSize = 64 << 10

// Pool is a generics wrapper around [sync.Pool] to provide strongly-typed object pooling.
type Pool[T any] struct {
	p sync.Pool
	keep func(T) bool
}

type Reseter interface {
	Reset()
}

// New returns a new [Pool] for T, and will use fn to construct new T's when the pool is empty.
func New[T any](fn func() T) *Pool[T] {
	return &Pool[T]{
		p: sync.Pool{
			New: func() any {
				return fn()
			},
		},
	}
}

// WithKeep sets the predicate deciding whether a returned value goes back into the pool.
func (p *Pool[T]) WithKeep(keep func(T) bool) *Pool[T] {
	p.keep = keep
	return p
}

// Get gets a T from the pool, or creates a new one if the pool is empty.
func (p *Pool[T]) Get() T {
	return p.p.Get().(T)
}

// Put returns x into the pool.
func (p *Pool[T]) Put(x T) {
	if p.keep != nil && !p.keep(x) {
		return
	}
	if xx, ok := any(x).(Reseter); ok {
		xx.Reset()
	}
	p.p.Put(x)
}

// Bytes provides the [*bytes.Buffer] pooling objects.
var Bytes = New(func() *bytes.Buffer {
	return &bytes.Buffer{}
}).WithKeep(func(b *bytes.Buffer) bool {
	return b.Cap() <= MaxBufferSize
})
