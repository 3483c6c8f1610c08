package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes separate the id spaces. The version suffix allows a future
// change of algorithm without collisions.
const (
	DomainInvocation = "mulchledger/invocation/v1"
	DomainCompletion = "mulchledger/completion/v1"
	DomainState      = "mulchledger/state/v1"
	DomainArgs       = "mulchledger/args/v1"
)

// hashWithDomain returns hex(SHA-256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InvocationID computes the content-addressed id of an invocation.
//
// The caller and height are part of the identity: the same arguments
// submitted by a different identity are a different transition.
func InvocationID(inv Invocation) (string, error) {
	obj := IRObject{
		"flow_token": IRString(inv.FlowToken),
		"action":     IRString(inv.Action),
		"args":       inv.Args,
		"caller":     IRString(inv.Caller),
		"height":     IRInt(inv.Height),
		"seq":        IRInt(inv.Seq),
	}
	if inv.Args == nil {
		obj["args"] = IRObject{}
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("invocation id: %w", err)
	}
	return hashWithDomain(DomainInvocation, data), nil
}

// CompletionID computes the content-addressed id of a completion.
func CompletionID(c Completion) (string, error) {
	obj := IRObject{
		"invocation_id": IRString(c.InvocationID),
		"output_case":   IRString(c.OutputCase),
		"result":        c.Result,
		"seq":           IRInt(c.Seq),
	}
	if c.Result == nil {
		obj["result"] = IRObject{}
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("completion id: %w", err)
	}
	return hashWithDomain(DomainCompletion, data), nil
}

// StateDigest hashes a snapshot of ledger state. Two engines that applied the
// same log produce the same digest.
func StateDigest(snapshot IRObject) (string, error) {
	data, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("state digest: %w", err)
	}
	return hashWithDomain(DomainState, data), nil
}

// ArgsHash identifies a resolved argument set, independent of flow and
// seq. Follow-on cycle detection keys on it.
func ArgsHash(args IRObject) (string, error) {
	if args == nil {
		args = IRObject{}
	}
	data, err := MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("args hash: %w", err)
	}
	return hashWithDomain(DomainArgs, data), nil
}

// MustInvocationID is InvocationID that panics. For tests and fixed inputs.
func MustInvocationID(inv Invocation) string {
	id, err := InvocationID(inv)
	if err != nil {
		panic(err)
	}
	return id
}
