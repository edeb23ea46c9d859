package custody

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	id "ahorro/pkg/domain"
)

// Namespace separates the pools a group owns.
type Namespace string

const (
	NamespaceGroupPool     Namespace = "group_vault"
	NamespaceInsurancePool Namespace = "insurance_vault"
)

// Proof is the capability to sign for a derived pool. It is recorded once, when
// the group is created, and reused for every outgoing transfer.
type Proof struct {
	Namespace Namespace
	Group     id.GroupID
	Bump      uint8
}

// Pool is a derived pool address together with its proof.
type Pool struct {
	Address id.Address
	Proof   Proof
}

// Authorization is what AuthorizeTransfer grants: the signer to present to the
// Ledger for one transfer out of Pool.
type Authorization struct {
	Pool        id.Address
	Destination id.Address
	Amount      uint64
	Signer      id.Principal
}

// Authorizer grants transfers out of a pool it controls.
type Authorizer interface {
	AuthorizeTransfer(pool id.Address, amount uint64, destination id.Address) (Authorization, error)
}

// Deriver derives the control address of a group pool.
type Deriver interface {
	Derive(ns Namespace, group id.GroupID) (Pool, error)
}

// Blake2bDeriver derives pool addresses as blake2b-256(namespace, group, bump),
// searching bumps downward from 255 for the first digest with its top bit
// clear. Derived digests with the top bit set are reserved for signing keys.
type Blake2bDeriver struct{}

func (Blake2bDeriver) Derive(ns Namespace, group id.GroupID) (Pool, error) {
	for bump := 255; bump >= 0; bump-- {
		sum := digest(ns, group, uint8(bump))
		if sum[0]&0x80 != 0 {
			continue
		}
		return Pool{
			Address: encodeAddress(sum),
			Proof:   Proof{Namespace: ns, Group: group, Bump: uint8(bump)},
		}, nil
	}
	return Pool{}, fmt.Errorf("no viable bump for %s/%s", ns, group)
}

// Address recomputes the pool address this proof signs for.
func (p Proof) Address() (id.Address, error) {
	sum := digest(p.Namespace, p.Group, p.Bump)
	if sum[0]&0x80 != 0 {
		return "", fmt.Errorf("bump %d is not a valid derivation for %s", p.Bump, p.Namespace)
	}
	return encodeAddress(sum), nil
}

// AuthorizeTransfer checks the proof derives pool and returns the pool's
// control identity as signer.
func (p Proof) AuthorizeTransfer(pool id.Address, amount uint64, destination id.Address) (Authorization, error) {
	addr, err := p.Address()
	if err != nil {
		return Authorization{}, err
	}
	if addr != pool {
		return Authorization{}, fmt.Errorf("proof for %s does not control %s", addr, pool)
	}
	return Authorization{
		Pool:        pool,
		Destination: destination,
		Amount:      amount,
		Signer:      ControlIdentity(pool),
	}, nil
}

// ControlIdentity is the owner recorded on a derived pool's token account. It
// carries id.ControlPrefix, which no parsed principal may use.
func ControlIdentity(pool id.Address) id.Principal {
	return id.Principal(pool)
}

func digest(ns Namespace, group id.GroupID, bump uint8) [32]byte {
	g := [16]byte(group)
	buf := make([]byte, 0, len(ns)+1+len(g)+1)
	buf = append(buf, ns...)
	buf = append(buf, 0)
	buf = append(buf, g[:]...)
	buf = append(buf, bump)
	return blake2b.Sum256(buf)
}

func encodeAddress(sum [32]byte) id.Address {
	return id.Address(id.ControlPrefix + hex.EncodeToString(sum[:]))
}
