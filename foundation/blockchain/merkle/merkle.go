// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored into stored levels, and turned
// into generics.

// Package merkle computes the transaction root of a block and the proofs that
// a transaction is included under that root.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Hash() ([]byte, error)
}

// Tree is a binary sha256 tree over the hashes of its values. A level with
// an odd number of nodes pairs its last node with itself.
type Tree[T Hashable] struct {
	values []T
	levels [][][]byte
}

// NewTree hashes the values and builds every level up to the root. An empty
// set of values has a root of zeros.
func NewTree[T Hashable](values []T) (*Tree[T], error) {
	t := Tree[T]{
		values: values,
	}

	if len(values) == 0 {
		t.levels = [][][]byte{{make([]byte, sha256.Size)}}
		return &t, nil
	}

	leafs := make([][]byte, len(values))
	for i, v := range values {
		h, err := v.Hash()
		if err != nil {
			return nil, fmt.Errorf("hashing value %d: %w", i, err)
		}
		leafs[i] = h
	}
	t.levels = append(t.levels, leafs)

	for level := leafs; len(level) > 1 || len(t.levels) == 1; {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, pair(level[i], right))
		}
		t.levels = append(t.levels, next)
		level = next
	}

	return &t, nil
}

// Root returns the root hash.
func (t *Tree[T]) Root() []byte {
	return t.levels[len(t.levels)-1][0]
}

// RootHex returns the root hash hex encoded.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.Root())
}

// Values returns the values the tree was built from.
func (t *Tree[T]) Values() []T {
	return t.values
}

// Proof returns the sibling hashes from the value at index up to the root and
// the side each sibling goes on: 0 when it is concatenated first, 1 when it
// is concatenated second.
func (t *Tree[T]) Proof(index int) ([][]byte, []int64, error) {
	if index < 0 || index >= len(t.values) {
		return nil, nil, errors.New("value is not in the tree")
	}

	var proof [][]byte
	var order []int64
	for _, level := range t.levels[:len(t.levels)-1] {
		switch {
		case index%2 == 1:
			proof = append(proof, level[index-1])
			order = append(order, 0)
		case index+1 < len(level):
			proof = append(proof, level[index+1])
			order = append(order, 1)
		default:
			proof = append(proof, level[index])
			order = append(order, 1)
		}
		index /= 2
	}

	return proof, order, nil
}

// Verify replays a proof from the leaf hash and reports whether it arrives
// at the root.
func Verify(root []byte, leaf []byte, proof [][]byte, order []int64) bool {
	if len(proof) != len(order) {
		return false
	}

	h := leaf
	for i, p := range proof {
		if order[i] == 0 {
			h = pair(p, h)
			continue
		}
		h = pair(h, p)
	}

	return bytes.Equal(h, root)
}

// =============================================================================

func pair(left []byte, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
