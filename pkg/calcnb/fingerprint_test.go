// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package calcnb

import "testing"

func TestFingerprint(t *testing.T) {
	a, err := fingerprint("a = 1\nb = 2")
	if err != nil {
		t.Fatal(err)
	}
	again, _ := fingerprint("a = 1\nb = 2")
	if a != again {
		t.Error("fingerprint is not stable")
	}
	other, _ := fingerprint("a = 1\nb = 3")
	if a == other {
		t.Error("expected different documents to hash differently")
	}
}
