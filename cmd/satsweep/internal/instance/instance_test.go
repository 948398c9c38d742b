// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package instance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCNF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instance.cnf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const satisfiable = `c six-variable example
p cnf 6 7
1 2 3 0
4 5 6 0
-1 -4 0
-2 -5 0
-3 -6 0
-1 -3 0
-4 -6 0
`

func TestDescribe_Counts(t *testing.T) {
	path := writeCNF(t, satisfiable)

	desc, err := Describe(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, path, desc.Path)
	assert.Equal(t, int64(len(satisfiable)), desc.Size)
	assert.Equal(t, 6, desc.DeclaredVars)
	assert.Equal(t, 7, desc.DeclaredClauses)
	assert.Equal(t, 6, desc.Vars)
	assert.Equal(t, 7, desc.Clauses)
	assert.Zero(t, desc.Units)
	assert.False(t, desc.TriviallyUnsat)
	assert.False(t, desc.Solved)
	assert.False(t, desc.Mismatch())
}

func TestDescribe_Solve(t *testing.T) {
	desc, err := Describe(writeCNF(t, satisfiable), Options{Solve: true})
	require.NoError(t, err)

	assert.True(t, desc.Solved)
	assert.True(t, desc.Satisfiable)
}

func TestDescribe_TriviallyUnsat(t *testing.T) {
	desc, err := Describe(writeCNF(t, "p cnf 1 2\n1 0\n-1 0\n"), Options{Solve: true})
	require.NoError(t, err)

	assert.True(t, desc.TriviallyUnsat)
	assert.True(t, desc.Solved)
	assert.False(t, desc.Satisfiable)
	assert.False(t, desc.Mismatch())
}

func TestDescribe_DeclaredMismatch(t *testing.T) {
	desc, err := Describe(writeCNF(t, "p cnf 3 5\n1 2 0\n-2 3 0\n"), Options{})
	require.NoError(t, err)

	assert.Equal(t, 5, desc.DeclaredClauses)
	assert.Equal(t, 2, desc.Clauses)
	assert.True(t, desc.Mismatch())
}

func TestDescribe_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Describe(filepath.Join(t.TempDir(), "missing.cnf"), Options{})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("no problem line", func(t *testing.T) {
		_, err := Describe(writeCNF(t, "c only a comment\n1 2 0\n"), Options{})
		assert.True(t, errors.Is(err, ErrNoProblemLine))
	})

	t.Run("not cnf", func(t *testing.T) {
		_, err := Describe(writeCNF(t, "p wcnf 3 2\n1 2 0\n"), Options{})
		assert.True(t, errors.Is(err, ErrNoProblemLine))
	})

	t.Run("bad counts", func(t *testing.T) {
		_, err := Describe(writeCNF(t, "p cnf x 2\n"), Options{})
		assert.True(t, errors.Is(err, ErrNoProblemLine))
	})
}

func TestScanProblemLine_SkipsComments(t *testing.T) {
	vars, clauses, err := scanProblemLine([]byte("c header\nc p is not here\np cnf 100 430\n"))
	require.NoError(t, err)
	assert.Equal(t, 100, vars)
	assert.Equal(t, 430, clauses)
}

// satlibStyle mimics the uf* benchmark files: comment header, indented
// clauses, and a "%" / "0" trailer after the last clause.
const satlibStyle = `c This Formular is generated by mcnf
c
c    horn? no
p cnf 3 2
 1 -2 3 0
-1 2 3 0
%
0

`

func TestDescribe_SATLIBTrailer(t *testing.T) {
	path := writeCNF(t, satlibStyle)

	desc, err := Describe(path, Options{Solve: true})
	require.NoError(t, err)

	assert.Equal(t, int64(len(satlibStyle)), desc.Size)
	assert.Equal(t, 3, desc.DeclaredVars)
	assert.Equal(t, 2, desc.DeclaredClauses)
	assert.Equal(t, 3, desc.Vars)
	assert.Equal(t, 2, desc.Clauses)
	assert.False(t, desc.Mismatch())
	assert.True(t, desc.Solved)
	assert.True(t, desc.Satisfiable)
}

func TestClauseText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "p cnf 2 1\n1 2 0\n", "p cnf 2 1\n1 2 0\n"},
		{"comments and blanks", "c hi\n\np cnf 2 1\n\nc mid\n1 2 0\n", "p cnf 2 1\n1 2 0\n"},
		{"indented", "p cnf 2 1\n  1 2 0  \n", "p cnf 2 1\n1 2 0\n"},
		{"trailer", "p cnf 2 1\n1 2 0\n%\n0\n", "p cnf 2 1\n1 2 0\n"},
		{"no final newline", "p cnf 2 1\n1 2 0", "p cnf 2 1\n1 2 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := clauseText([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

