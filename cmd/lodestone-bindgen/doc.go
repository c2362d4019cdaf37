// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// lodestone-bindgen emits the value codec's variant table as JSON or
// YAML. Foreign binding generators consume the table to produce
// type definitions that stay in lockstep with the Go codec.
package main
