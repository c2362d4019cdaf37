// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// lodestone-call executes a single deployment function from the
// command line: a query, mutation, or action, or a subscription
// followed until interrupted. Arguments are given as JSON and results
// are printed as JSON, using the same interchange conventions as the
// sync protocol.
package main
