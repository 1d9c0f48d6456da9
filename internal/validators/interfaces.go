// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks the shape of inbound authentication requests
// before they reach the authentication core.
//
// A Validator inspects one value and, optionally, only the named fields of
// it. It never touches storage; rules that need the database belong to the
// services.
package validators

import "context"

// Validator defines a generic validation interface for arbitrary input values.
type Validator interface {

	// Validate validates the provided input and optionally
	// restricts validation to specific named fields.
	Validate(context.Context, any, ...string) error
}
