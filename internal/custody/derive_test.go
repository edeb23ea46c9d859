package custody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ahorro/pkg/domain"
)

func TestBlake2bDeriver(t *testing.T) {
	group := id.NewGroupID()
	d := Blake2bDeriver{}

	t.Run("derivation is deterministic", func(t *testing.T) {
		a, err := d.Derive(NamespaceGroupPool, group)
		require.NoError(t, err)
		b, err := d.Derive(NamespaceGroupPool, group)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("namespaces yield distinct pools", func(t *testing.T) {
		g, err := d.Derive(NamespaceGroupPool, group)
		require.NoError(t, err)
		ins, err := d.Derive(NamespaceInsurancePool, group)
		require.NoError(t, err)
		assert.NotEqual(t, g.Address, ins.Address)
	})

	t.Run("groups yield distinct pools", func(t *testing.T) {
		a, err := d.Derive(NamespaceGroupPool, group)
		require.NoError(t, err)
		b, err := d.Derive(NamespaceGroupPool, id.NewGroupID())
		require.NoError(t, err)
		assert.NotEqual(t, a.Address, b.Address)
	})

	t.Run("derived address parses as an address", func(t *testing.T) {
		p, err := d.Derive(NamespaceInsurancePool, group)
		require.NoError(t, err)
		_, err = id.ParseAddress(p.Address.String())
		require.NoError(t, err)
	})
}

func TestProofAuthorizeTransfer(t *testing.T) {
	group := id.NewGroupID()
	pool, err := Blake2bDeriver{}.Derive(NamespaceGroupPool, group)
	require.NoError(t, err)

	t.Run("proof signs for its own pool", func(t *testing.T) {
		auth, err := pool.Proof.AuthorizeTransfer(pool.Address, 500, "alice-wallet")
		require.NoError(t, err)
		assert.Equal(t, ControlIdentity(pool.Address), auth.Signer)
		assert.Equal(t, uint64(500), auth.Amount)
		assert.Equal(t, id.Address("alice-wallet"), auth.Destination)
	})

	t.Run("proof refuses a different pool", func(t *testing.T) {
		other, err := Blake2bDeriver{}.Derive(NamespaceInsurancePool, group)
		require.NoError(t, err)
		_, err = pool.Proof.AuthorizeTransfer(other.Address, 1, "alice-wallet")
		require.Error(t, err)
	})

	t.Run("tampered bump does not sign", func(t *testing.T) {
		forged := pool.Proof
		forged.Bump--
		_, err := forged.AuthorizeTransfer(pool.Address, 1, "alice-wallet")
		require.Error(t, err)
	})
}
