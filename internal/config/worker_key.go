package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "practice:persist_answers_queue",
}
