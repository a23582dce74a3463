// Package async provides the bounded worker pool and task wrapper used to run
// blocking gateway calls off the coordinator's control loop. Each task
// carries a cooperative cancellation flag and a progress channel, and reports
// exactly one terminal callback (result or error) followed by an
// unconditional done notification.
package async
