// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package calcnb

import (
	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("calcnb-document-fingerprint-key!")

// fingerprint hashes a document so that a pass over unchanged text can be
// skipped.
func fingerprint(text string) (uint64, error) {
	hash, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return 0, err
	}
	_, err = hash.Write([]byte(text))
	return hash.Sum64(), err
}
