package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvocation() Invocation {
	return Invocation{
		FlowToken: "flow-1",
		Action:    "Booking.book",
		Args:      IRObject{"provider_id": IRInt(1), "estimated_hours": IRInt(4)},
		Caller:    "customer",
		Height:    2,
		Seq:       1,
	}
}

func TestInvocationID_Deterministic(t *testing.T) {
	id1, err := InvocationID(sampleInvocation())
	require.NoError(t, err)
	id2, err := InvocationID(sampleInvocation())
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestInvocationID_CoversEveryField(t *testing.T) {
	base := MustInvocationID(sampleInvocation())

	mutations := map[string]func(*Invocation){
		"flow":   func(i *Invocation) { i.FlowToken = "flow-2" },
		"action": func(i *Invocation) { i.Action = "Booking.get" },
		"args":   func(i *Invocation) { i.Args = IRObject{"provider_id": IRInt(2)} },
		"caller": func(i *Invocation) { i.Caller = "someone-else" },
		"height": func(i *Invocation) { i.Height = 3 },
		"seq":    func(i *Invocation) { i.Seq = 2 },
	}
	for name, mutate := range mutations {
		inv := sampleInvocation()
		mutate(&inv)
		assert.NotEqual(t, base, MustInvocationID(inv), "%s must affect the id", name)
	}
}

func TestInvocationID_IgnoresVersionsAndID(t *testing.T) {
	inv := sampleInvocation()
	base := MustInvocationID(inv)

	inv.ID = "anything"
	inv.EngineVersion = EngineVersion
	inv.IRVersion = IRVersion
	assert.Equal(t, base, MustInvocationID(inv))
}

func TestCompletionID(t *testing.T) {
	c := Completion{
		InvocationID: MustInvocationID(sampleInvocation()),
		OutputCase:   CaseSuccess,
		Result:       IRObject{"booking_id": IRInt(1)},
		Seq:          2,
	}
	id1, err := CompletionID(c)
	require.NoError(t, err)

	c.OutputCase = "InsufficientPayment"
	id2, err := CompletionID(c)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	// Nil and empty results hash the same.
	c.Result = nil
	id3, err := CompletionID(c)
	require.NoError(t, err)
	c.Result = IRObject{}
	id4, err := CompletionID(c)
	require.NoError(t, err)
	assert.Equal(t, id3, id4)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t,
		hashWithDomain(DomainInvocation, data),
		hashWithDomain(DomainCompletion, data))
	assert.NotEqual(t,
		hashWithDomain(DomainCompletion, data),
		hashWithDomain(DomainState, data))
}

func TestStateDigest_KeyOrderIndependent(t *testing.T) {
	a := IRObject{"providers": IRArray{}, "gardens": IRArray{IRInt(1)}}
	b := IRObject{"gardens": IRArray{IRInt(1)}, "providers": IRArray{}}

	da, err := StateDigest(a)
	require.NoError(t, err)
	db, err := StateDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}
