package msg

import "github.com/samber/lo"

// FilterResult is the outcome of a proposal filter. Reason is set only when
// no proposal remains.
type FilterResult struct {
	Proposals []Proposal
	Reason    RejectReason
}

// Filter drops proposals that cannot be served at time now.
type Filter func(proposals []Proposal, now float64) FilterResult

// StandardProposalsFilter returns a Filter dropping proposals that arrive
// before now (too late) and then those arriving after now +
// maxFutureReservationTime (too large). Order is preserved.
func StandardProposalsFilter(maxFutureReservationTime float64) Filter {
	return func(proposals []Proposal, now float64) FilterResult {
		remaining := lo.Filter(proposals, func(p Proposal, _ int) bool {
			return p.ArrivalTime >= now
		})
		if len(remaining) == 0 {
			return FilterResult{Reason: ReasonArrivalTimeTooLate}
		}
		remaining = lo.Filter(remaining, func(p Proposal, _ int) bool {
			return p.ArrivalTime <= now+maxFutureReservationTime
		})
		if len(remaining) == 0 {
			return FilterResult{Reason: ReasonArrivalTimeTooLarge}
		}
		return FilterResult{Proposals: remaining}
	}
}
