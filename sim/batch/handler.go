// Package batch queues reservation proposals and resolves them in batches.
// Proposals of one request form a group: the first proposal of a group that
// a Policy can satisfy confirms the request, and the request is rejected once
// when every proposal of its group has failed.
package batch

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/intersection-sim/intersection-sim/sim/msg"
)

// ReserveParam is an opaque handle on a reservation a Policy can commit.
type ReserveParam interface {
	VIN() int
}

// Policy is the reservation authority the handler consults.
type Policy interface {
	CurrentTime() float64
	HasReservation(vin int) bool
	// FindReserveParam returns a committable reservation for the first of
	// proposals that can be served, or false when none can.
	FindReserveParam(req *msg.Request, proposals []msg.Proposal) (ReserveParam, bool)
	SendConfirmMsg(requestID int, p ReserveParam)
	SendRejectMsg(vin, requestID int, reason msg.RejectReason)
}

// IndexedProposal is a queued proposal. Seq is unique and increasing in
// submission order; Group identifies the owning request.
type IndexedProposal struct {
	Seq            int
	Group          int
	Proposal       msg.Proposal
	SubmissionTime float64

	slot int // arena index
	dead bool
}

type group struct {
	request *msg.Request
	members []int // arena indices
	live    int
}

// Handler queues proposals and resolves them against a Policy.
// Not thread-safe.
type Handler struct {
	strategy ReorderingStrategy
	policy   Policy
	filter   msg.Filter

	arena     []IndexedProposal
	index     []int // live arena indices ordered by (ArrivalTime, Seq)
	groups    map[int]*group
	groupOf   map[int]int // vin -> group id
	nextSeq   int
	nextGroup int
}

// NewHandler creates a handler. Panics on nil arguments.
func NewHandler(strategy ReorderingStrategy, policy Policy, filter msg.Filter) *Handler {
	if strategy == nil || policy == nil || filter == nil {
		panic("NewHandler: strategy, policy and filter must not be nil")
	}
	return &Handler{
		strategy: strategy,
		policy:   policy,
		filter:   filter,
		groups:   make(map[int]*group),
		groupOf:  make(map[int]int),
	}
}

// Strategy returns the reordering strategy.
func (h *Handler) Strategy() ReorderingStrategy { return h.strategy }

// QueueLen returns the number of queued proposals.
func (h *Handler) QueueLen() int { return len(h.index) }

// Queued reports whether vin has proposals waiting.
func (h *Handler) Queued(vin int) bool {
	_, ok := h.groupOf[vin]
	return ok
}

// Pending returns the queued proposals in (arrival time, seq) order.
// The pointers are valid until the next ProcessRequest or Act call.
func (h *Handler) Pending() []*IndexedProposal {
	return lo.Map(h.index, func(i int, _ int) *IndexedProposal { return &h.arena[i] })
}

// ProcessRequest takes a request from a vehicle. The request is either
// answered immediately or its proposals are queued for a later batch.
// A request from a vehicle with queued proposals replaces them.
func (h *Handler) ProcessRequest(req *msg.Request) {
	if req == nil {
		panic("Handler.ProcessRequest: req must not be nil")
	}
	if h.policy.HasReservation(req.VIN) {
		h.policy.SendRejectMsg(req.VIN, req.RequestID, msg.ReasonConfirmedAnotherRequest)
		return
	}
	if g, ok := h.groupOf[req.VIN]; ok {
		logrus.Debugf("batch: vin %d request %d supersedes queued request %d", req.VIN, req.RequestID, h.groups[g].request.RequestID)
		h.dropGroup(g)
	}

	now := h.policy.CurrentTime()
	res := h.filter(req.Proposals, now)
	if len(res.Proposals) == 0 {
		h.policy.SendRejectMsg(req.VIN, req.RequestID, res.Reason)
		return
	}

	deadline := h.strategy.NextProposalDeadline()
	late, onTime := lo.FilterReject(res.Proposals, func(p msg.Proposal, _ int) bool {
		return p.ArrivalTime < deadline
	})
	if len(late) > 0 {
		if p, ok := h.policy.FindReserveParam(req, late); ok {
			h.policy.SendConfirmMsg(req.RequestID, p)
			return
		}
		if len(onTime) == 0 {
			h.policy.SendRejectMsg(req.VIN, req.RequestID, msg.ReasonNoClearPath)
			return
		}
	}
	h.enqueue(req, onTime, now)
}

// Act resolves a batch when the processing time has come, then resolves
// the queued proposals that can no longer wait for the next batch.
func (h *Handler) Act(timeStep float64) {
	now := h.policy.CurrentTime()
	if now < h.strategy.NextProcessingTime() {
		return
	}
	batch := h.strategy.GetBatch(now, h.Pending(), timeStep)
	confirmed := 0
	for _, ip := range batch {
		if ip.dead {
			continue
		}
		if h.resolve(ip) {
			confirmed++
		}
	}
	deadline := h.strategy.NextProposalDeadline()
	late := 0
	for len(h.index) > 0 && h.arena[h.index[0]].Proposal.ArrivalTime < deadline {
		late++
		if h.resolve(&h.arena[h.index[0]]) {
			confirmed++
		}
	}
	if len(batch) > 0 || late > 0 {
		logrus.Infof("[t=%.2f] batch: %d proposals, %d late, %d confirmed, %d still queued",
			now, len(batch), late, confirmed, len(h.index))
	}
	h.compact()
}

// resolve tries a single proposal; returns true when its request was confirmed.
func (h *Handler) resolve(ip *IndexedProposal) bool {
	g, ok := h.groups[ip.Group]
	if !ok {
		panic(fmt.Sprintf("Handler.resolve: proposal %d has no group %d", ip.Seq, ip.Group))
	}
	req := g.request
	if p, ok := h.policy.FindReserveParam(req, []msg.Proposal{ip.Proposal}); ok {
		h.policy.SendConfirmMsg(req.RequestID, p)
		h.dropGroup(ip.Group)
		return true
	}
	h.kill(ip)
	g.live--
	if g.live == 0 {
		delete(h.groups, ip.Group)
		delete(h.groupOf, req.VIN)
		h.policy.SendRejectMsg(req.VIN, req.RequestID, msg.ReasonNoClearPath)
	}
	return false
}

func (h *Handler) enqueue(req *msg.Request, proposals []msg.Proposal, now float64) {
	h.compact()
	id := h.nextGroup
	h.nextGroup++
	g := &group{request: req}
	for _, p := range proposals {
		i := len(h.arena)
		h.arena = append(h.arena, IndexedProposal{Seq: h.nextSeq, Group: id, Proposal: p, SubmissionTime: now, slot: i})
		h.nextSeq++
		g.members = append(g.members, i)
		h.insert(i)
	}
	g.live = len(g.members)
	h.groups[id] = g
	h.groupOf[req.VIN] = id
}

func (h *Handler) less(a, b int) bool {
	pa, pb := &h.arena[a], &h.arena[b]
	if pa.Proposal.ArrivalTime != pb.Proposal.ArrivalTime {
		return pa.Proposal.ArrivalTime < pb.Proposal.ArrivalTime
	}
	return pa.Seq < pb.Seq
}

// position returns where arena index i sits, or would sit, in the index.
func (h *Handler) position(i int) int {
	return sort.Search(len(h.index), func(k int) bool { return !h.less(h.index[k], i) })
}

func (h *Handler) insert(i int) {
	k := h.position(i)
	h.index = append(h.index, 0)
	copy(h.index[k+1:], h.index[k:])
	h.index[k] = i
}

// kill tombstones a proposal and drops it from the ordered index.
func (h *Handler) kill(ip *IndexedProposal) {
	if ip.dead {
		return
	}
	ip.dead = true
	k := h.position(ip.slot)
	if k >= len(h.index) || h.index[k] != ip.slot {
		panic(fmt.Sprintf("Handler.kill: proposal %d missing from index", ip.Seq))
	}
	h.index = append(h.index[:k], h.index[k+1:]...)
}

func (h *Handler) dropGroup(id int) {
	g := h.groups[id]
	for _, i := range g.members {
		h.kill(&h.arena[i])
	}
	delete(h.groups, id)
	delete(h.groupOf, g.request.VIN)
}

// compact rebuilds the arena without tombstones once they make up more
// than half of it. Arena indices held in index and group members are
// remapped. Callers must not hold arena pointers across a compact.
func (h *Handler) compact() {
	if len(h.index) == 0 {
		h.arena = h.arena[:0]
		return
	}
	if dead := len(h.arena) - len(h.index); dead*2 <= len(h.arena) {
		return
	}
	remap := make(map[int]int, len(h.index))
	arena := make([]IndexedProposal, 0, len(h.index))
	for k, i := range h.index {
		ip := h.arena[i]
		ip.slot = len(arena)
		remap[i] = ip.slot
		arena = append(arena, ip)
		h.index[k] = ip.slot
	}
	for _, g := range h.groups {
		g.members = lo.FilterMap(g.members, func(i int, _ int) (int, bool) {
			j, ok := remap[i]
			return j, ok
		})
	}
	h.arena = arena
}
