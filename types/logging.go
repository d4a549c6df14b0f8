package types

type SubSystem string

const (
	Consensus       SubSystem = "consensus"
	Settle          SubSystem = "settle"
	Payments        SubSystem = "payments"
	Disputes        SubSystem = "disputes"
	Reputations     SubSystem = "reputation"
	EventProcessing SubSystem = "events"
	Config          SubSystem = "config"
	Storage         SubSystem = "storage"
)
