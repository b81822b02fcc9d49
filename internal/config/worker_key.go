package config

type WorkerKeyStruct struct {
	PersistAnswersQueue  string
	SettlementRetryQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:  "persist_answers_queue",
	SettlementRetryQueue: "settlement_retry_queue",
}
