// Package testutil provides fixtures for swarmdb tests.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible event logs and writes them to disk with the
// container header expected by the package under test.
//
//	rng := testutil.NewRNG(seed)
//	payload, events := rng.Log(testutil.LogSpec{Records: 500, Systems: 16})
//	testutil.WriteFile(t, path, format.TypeUnsorted, payload)
package testutil
