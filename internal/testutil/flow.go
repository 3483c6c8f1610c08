package testutil

// FixedFlowGenerator returns the same flow token on every call.
//
// Scenario runs use it so every request, and every follow-on it triggers,
// carries the token named in the scenario file. Cycle and quota state is
// dropped when each Invoke returns, so sharing one token across requests
// does not couple them.
//
// FixedFlowGenerator is stateless and safe for concurrent use.
type FixedFlowGenerator struct {
	token string
}

// DefaultFlowToken is used when NewFixedFlowGenerator is given no token.
const DefaultFlowToken = "scenario-flow"

// NewFixedFlowGenerator creates a generator for token, or DefaultFlowToken
// if token is empty.
func NewFixedFlowGenerator(token string) *FixedFlowGenerator {
	if token == "" {
		token = DefaultFlowToken
	}
	return &FixedFlowGenerator{token: token}
}

// Generate implements engine.FlowTokenGenerator.
func (g *FixedFlowGenerator) Generate() string {
	return g.token
}
