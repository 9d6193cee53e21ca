// Package emitter is the Expression Emitter, Statement Emitter, Loop &
// Control Helpers, SIMD Vectoriser, CFG Emitter and Top-level Orchestrator
// of spec.md §4.5-§4.10, assembled into one cooperating struct. It is the
// only package that knows BASIC semantics; everything below it
// (ilbuilder, qtype, mangle, rtabi) is a dumb, reusable layer.
package emitter

import (
	"github.com/sirupsen/logrus"

	"github.com/fasterbasic/qbemit/internal/ilbuilder"
	"github.com/fasterbasic/qbemit/internal/mangle"
	"github.com/fasterbasic/qbemit/internal/qtype"
	"github.com/fasterbasic/qbemit/internal/rtabi"
	"github.com/fasterbasic/qbemit/sema"
)

// elemCacheEntry is one entry of the array-element address cache of
// spec.md §4.5 "Array access" / §9's last design note: it retains the
// computed element address for the duration of the current statement
// group and is invalidated at every statement boundary that can mutate
// the index or the array.
type elemCacheEntry struct {
	addr string
}

// Emitter is the per-program emission context. One Emitter emits one
// whole program; ResetFunction is called at every function/method
// boundary to reset the per-function state bundle of spec.md §5.
type Emitter struct {
	b      *ilbuilder.Builder
	qt     *qtype.Manager
	facade *rtabi.Façade
	table  *sema.Table
	cfg    Config
	log    *logrus.Logger

	fn             *mangle.FuncContext
	currentReturn  *sema.Type
	methodMode     bool
	currentClassID int

	localAddr       map[string]string
	forSlots        map[string]string
	forEachSlots    map[string]string
	elemCache       map[string]elemCacheEntry
	boundsBufAddr   string
	sharedIdxBufAddr string
	udtScratchAddr   string
	gosubStackGlobal string
	gosubIndexGlobal string
	dataPointerGlobal string
	dataEndConst      string
}

// New builds an Emitter around a symbol table and configuration. A fresh
// logrus.Logger is used rather than the package-level default so multiple
// Emitters (e.g. in tests) never interleave log output.
func New(table *sema.Table, cfg Config) (*Emitter, error) {
	abi, err := rtabi.Load()
	if err != nil {
		return nil, err
	}
	b := ilbuilder.New()
	e := &Emitter{
		b:      b,
		qt:     qtype.New(table),
		facade: rtabi.NewFaçade(abi, b),
		table:  table,
		cfg:    cfg,
		log:    logrus.New(),
	}
	e.gosubStackGlobal = "$__gosub_stack"
	e.gosubIndexGlobal = "$__gosub_sp"
	e.dataPointerGlobal = "$__data_pointer"
	e.dataEndConst = "$__data_end_const"
	return e, nil
}

// ResetFunction resets the per-function state bundle (spec.md §5): local
// address maps, FOR/FOR-EACH slot maps, the array-element cache, and the
// builder's temp/label counters.
func (e *Emitter) ResetFunction(name string, isMethod bool, classID int, retType *sema.Type) {
	e.b.ResetFunction()
	e.fn = mangle.NewFuncContext(name)
	e.methodMode = isMethod
	e.currentClassID = classID
	e.currentReturn = retType
	e.localAddr = make(map[string]string)
	e.forSlots = make(map[string]string)
	e.forEachSlots = make(map[string]string)
	e.elemCache = make(map[string]elemCacheEntry)
	e.boundsBufAddr = ""
	e.sharedIdxBufAddr = ""
	e.udtScratchAddr = ""
}

// invalidateElemCache drops the whole array-element address cache. Called
// at every statement boundary per spec.md §4.5/§9: a complex index
// expression is deliberately never cached (re-evaluation is the safe
// default), so only the (arrayName, literal-or-variable-index) shape ever
// populates the cache in the first place.
func (e *Emitter) invalidateElemCache() {
	e.elemCache = make(map[string]elemCacheEntry)
}

// sharedIndexBuffer lazily allocates the per-function scratch buffer used to
// pack array subscripts before a runtime array_get_address call (spec.md
// §4.5 "Array access"). The orchestrator forces this allocation into the
// function's entry block through forceScratchBuffers; when it has not been
// forced, the first use allocates it wherever that use is being emitted.
func (e *Emitter) sharedIndexBuffer() string {
	if e.sharedIdxBufAddr == "" {
		addr := e.b.NewTemp()
		e.b.EmitAlloc(addr, 8, 64)
		e.sharedIdxBufAddr = addr
	}
	return e.sharedIdxBufAddr
}

// boundsBuffer lazily allocates the per-function scratch buffer that DIM and
// REDIM pack their (lower, upper) bound pairs into before calling
// array_new, array_new_custom or array_redim.
func (e *Emitter) boundsBuffer() string {
	if e.boundsBufAddr == "" {
		addr := e.b.NewTemp()
		e.b.EmitAlloc(addr, 8, 64)
		e.boundsBufAddr = addr
	}
	return e.boundsBufAddr
}

// udtScratchBuffer lazily allocates the per-function scratch buffer a
// standalone whole-UDT binary expression writes its result into before the
// caller stores or reads it (spec.md §4.8 "whole-UDT arithmetic", emitBinary's
// UDT case in expr.go).
func (e *Emitter) udtScratchBuffer() string {
	if e.udtScratchAddr == "" {
		addr := e.b.NewTemp()
		e.b.EmitAlloc(addr, 8, 16)
		e.udtScratchAddr = addr
	}
	return e.udtScratchAddr
}

// forceScratchBuffers eagerly allocates every per-function shared scratch
// buffer (array-index packing, DIM/REDIM bounds packing, whole-UDT arithmetic)
// right after the entry label, so none of them can be lazily allocated
// later from a non-entry CFG block — every `alloc` must lexically live in
// the entry block (spec.md §3, §8).
func (e *Emitter) forceScratchBuffers() {
	e.sharedIndexBuffer()
	e.boundsBuffer()
	e.udtScratchBuffer()
}

// Output flushes the pooled string literals into the data section and
// returns the whole textual SSA IL emitted so far.
func (e *Emitter) Output() string {
	e.b.FlushDataSection()
	return e.b.String()
}
