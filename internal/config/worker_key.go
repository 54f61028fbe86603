package config

type WorkerKeyStruct struct {
	SessionDeadlines  string
	ExpiryFailedQueue string
}

var WorkerKey = &WorkerKeyStruct{
	SessionDeadlines:  "session_deadlines",
	ExpiryFailedQueue: "session_expiry_failed_queue",
}
