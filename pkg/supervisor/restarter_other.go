//go:build !linux

package supervisor

type RebootRestarter struct {
	fallback *ExitRestarter
}

func NewRebootRestarter() *RebootRestarter {
	return &RebootRestarter{fallback: NewExitRestarter()}
}

func (r *RebootRestarter) Restart(reason string) {
	r.fallback.Restart(reason)
}
