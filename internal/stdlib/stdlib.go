// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package stdlib holds the definitions every notebook starts with.
package stdlib

import _ "embed"

// Prelude is evaluated before the first line of a notebook; its bindings
// form the notebook's initial scope.
//
//go:embed prelude.calc
var Prelude string
