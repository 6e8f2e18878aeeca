/*
 * Copyright 2017 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package options

// DefaultSparseDenseRatio is the cutoff-selection ratio used when a
// BuildOptions value leaves SparseDenseRatio unset. Levels are kept dense
// only while their dense memory, multiplied by this ratio, stays below the
// sparse memory of the levels beneath them.
const DefaultSparseDenseRatio = 16

// BuildOptions controls how Build/Builder lay a key set out across the
// LOUDS-Dense and LOUDS-Sparse tiers.
type BuildOptions struct {
	// IncludeDense, when false, forces every level into the sparse tier,
	// skipping dense-tier construction entirely.
	IncludeDense bool

	// SparseDenseRatio is the cutoff ratio described above. Zero means
	// DefaultSparseDenseRatio.
	SparseDenseRatio int
}

// WithDefaults returns a copy of opts with zero-valued fields replaced by
// their defaults.
func (opts BuildOptions) WithDefaults() BuildOptions {
	if opts.SparseDenseRatio <= 0 {
		opts.SparseDenseRatio = DefaultSparseDenseRatio
	}
	return opts
}
