// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel helpers for concurrency tests.
// Every helper carries a timeout safety valve so a broken test fails
// with a message instead of hanging the suite.
package testutil
