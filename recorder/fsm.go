package recorder

import (
	"github.com/qmuntal/stateless"
	"github.com/richarddahl/ruleflow/model"
)

const triggerStart = "start"
const triggerSucceed = "succeed"
const triggerFail = "fail"

func lifecycle(from model.ExecutionStatus) *stateless.StateMachine {
	sm := stateless.NewStateMachine(from)
	sm.Configure(model.EXECUTION_STATUS_PENDING).
		Permit(triggerStart, model.EXECUTION_STATUS_RUNNING)
	sm.Configure(model.EXECUTION_STATUS_RUNNING).
		Permit(triggerSucceed, model.EXECUTION_STATUS_SUCCESS).
		Permit(triggerFail, model.EXECUTION_STATUS_FAILED)
	return sm
}

func canTransition(from model.ExecutionStatus, to model.ExecutionStatus) bool {
	var trigger string
	switch to {
	case model.EXECUTION_STATUS_RUNNING:
		trigger = triggerStart
	case model.EXECUTION_STATUS_SUCCESS:
		trigger = triggerSucceed
	case model.EXECUTION_STATUS_FAILED:
		trigger = triggerFail
	default:
		return false
	}
	ok, err := lifecycle(from).CanFire(trigger)
	return ok && err == nil
}
