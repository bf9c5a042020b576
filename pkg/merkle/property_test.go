//go:build property
// +build property

package merkle_test

import (
	"crypto/sha256"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vaultmesh/covenant/pkg/merkle"
)

func leavesFrom(values []string) []merkle.H32 {
	out := make([]merkle.H32, len(values))
	for i, v := range values {
		out[i] = merkle.LeafHash([]byte(v))
	}
	return out
}

// TestRootDeterminism is P4: root(L) is a pure function of L.
func TestRootDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("root is a pure function of the leaf sequence", prop.ForAll(
		func(values []string) bool {
			leaves := leavesFrom(values)
			t1 := merkle.New(leaves)
			t2 := merkle.New(leaves)
			return t1.Root() == t2.Root()
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestProofSoundness is P5: every leaf's proof verifies against the tree's
// root.
func TestProofSoundness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every generated proof verifies", prop.ForAll(
		func(values []string) bool {
			if len(values) == 0 {
				return true
			}
			leaves := leavesFrom(values)
			tree := merkle.New(leaves)
			root := tree.Root()

			for i, leaf := range leaves {
				proof, ok := tree.Proof(i)
				if !ok {
					return false
				}
				if !merkle.Verify(leaf, proof, root) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestProofTamperDetection is P6: flipping a bit anywhere in a valid proof
// (the leaf, a sibling, or the root) must make verification fail.
func TestProofTamperDetection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("tampering with any proof component breaks verification", prop.ForAll(
		func(values []string, flipByte int) bool {
			// Need at least 2 distinct leaves so there is a sibling to tamper with.
			if len(values) < 2 {
				return true
			}
			leaves := leavesFrom(values)
			tree := merkle.New(leaves)
			root := tree.Root()

			proof, ok := tree.Proof(0)
			if !ok || len(proof.Siblings) == 0 {
				return true
			}

			leaf := leaves[0]
			if !merkle.Verify(leaf, proof, root) {
				return false // sanity: the untampered proof must verify
			}

			idx := ((flipByte % 32) + 32) % 32

			tamperedLeaf := leaf
			tamperedLeaf[idx] ^= 0x01
			if merkle.Verify(tamperedLeaf, proof, root) {
				return false
			}

			tamperedProof := *proof
			tamperedProof.Siblings = append([]merkle.H32(nil), proof.Siblings...)
			tamperedProof.Siblings[0][idx] ^= 0x01
			if merkle.Verify(leaf, &tamperedProof, root) {
				return false
			}

			tamperedRoot := root
			tamperedRoot[idx] ^= 0x01
			if merkle.Verify(leaf, proof, tamperedRoot) {
				return false
			}

			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Int(),
	))

	properties.TestingRun(t)
}

// TestLeafHashDomainSeparation confirms the 0x00 leaf tag takes effect: a
// leaf hash is SHA256(0x00||data), never the bare SHA256(data) of the same
// payload.
func TestLeafHashDomainSeparation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("leaf hashes are never the bare SHA-256 of the payload", prop.ForAll(
		func(a string) bool {
			leaf := merkle.LeafHash([]byte(a))
			bare := sha256.Sum256([]byte(a))
			return leaf != bare
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
