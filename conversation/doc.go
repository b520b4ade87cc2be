// Package conversation implements the per-user dialog state machine.
//
// A user moves through three states: idle, picking a camera model, and
// asking questions about the picked model's manual. The Machine computes
// transitions as tagged results so every (state, input) pair has one
// defined outcome; the Dispatcher sequences events per user, loads and
// persists sessions, and hands questions to the retrieval pipeline.
//
// A session store failure drops the event with no reply rather than
// applying a transition the store did not record. A retrieval failure
// keeps the user in the question state so the same question can be
// retried.
package conversation
