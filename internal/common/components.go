package common

const (
	ComponentEngine      = "engine"
	ComponentLedger      = "ledger"
	ComponentProvider    = "provider"
	ComponentSupervisor  = "supervisor"
	ComponentMaintenance = "maintenance"
	ComponentAPI         = "api"
)

var AllComponents = map[string]struct{}{
	ComponentEngine:      {},
	ComponentLedger:      {},
	ComponentProvider:    {},
	ComponentSupervisor:  {},
	ComponentMaintenance: {},
	ComponentAPI:         {},
}
