package rbidx

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/db/util"
	"github.com/ValentinKolb/dIdx/lib/rbtree"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum       = "RBIDX\x00\x00\x00" // File format identifier
	rbidxVersion   = 1                   // Snapshot version
	defaultTimeout = 5 * time.Second     // Default time a caller waits for a reply
)

var log = logger.GetLogger("rbidx")

// DBOptions configures the index engine
type DBOptions struct {
	Path    string        // Index file (empty = temporary file)
	Name    string        // Name used in metrics and logs (empty = base name of the file)
	Timeout time.Duration // Maximum wait for a reply (0 = use default: 5 sec)
}

// DefaultOptions returns the default engine options
func DefaultOptions() *DBOptions {
	return &DBOptions{Timeout: defaultTimeout}
}

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

type opType uint8

const (
	opAdd opType = iota
	opDelete
	opHas
	opLen
	opRange
	opDump
	opCheck
	opSave
	opLoad
	opInfo
)

type request struct {
	op       opType
	key      uint64
	from, to uint64
	limit    int
	writeIdx uint64
	w        io.Writer
	r        io.Reader
	reply    chan response
}

type response struct {
	ok   bool
	n    uint64
	keys []uint64
	info treeInfo
	err  error
}

type treeInfo struct {
	len, occupy, capacity uint64
	depths                util.Stats
	checkErr              error
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

type rbidxImpl struct {
	name    string
	path    string
	temp    bool
	timeout time.Duration

	// tree is owned by the goroutine running serve
	tree *rbtree.Tree[uint64]

	queue     *util.MPSCQueue[request]
	done      chan struct{}
	closed    atomic.Bool
	closeErr  error
	currIndex atomic.Uint64

	adds, deletes, duplicates, resizes *metrics.Counter
}

// NewIndexDB opens the index file and starts the goroutine that owns it.
func NewIndexDB(opts *DBOptions) (db.IndexDB, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	var (
		tree *rbtree.Tree[uint64]
		err  error
	)
	if opts.Path == "" {
		tree, err = openTemp()
	} else {
		tree, err = rbtree.OpenFile[uint64](opts.Path)
	}
	if err != nil {
		return nil, err
	}
	return start(tree, opts.Path == "", opts), nil
}

// start serves tree from a new goroutine. A temp tree's file is removed on Close.
func start(tree *rbtree.Tree[uint64], temp bool, opts *DBOptions) *rbidxImpl {
	e := &rbidxImpl{
		path:    tree.Name(),
		temp:    temp,
		name:    opts.Name,
		timeout: opts.Timeout,
		tree:    tree,
		queue:   util.NewMPSCQueue[request](),
		done:    make(chan struct{}),
	}
	if e.timeout <= 0 {
		e.timeout = defaultTimeout
	}
	if e.name == "" {
		e.name = filepath.Base(e.path)
	}
	e.adds = metrics.GetOrCreateCounter(fmt.Sprintf(`didx_index_adds_total{index=%q}`, e.name))
	e.deletes = metrics.GetOrCreateCounter(fmt.Sprintf(`didx_index_deletes_total{index=%q}`, e.name))
	e.duplicates = metrics.GetOrCreateCounter(fmt.Sprintf(`didx_index_duplicates_total{index=%q}`, e.name))
	e.resizes = metrics.GetOrCreateCounter(fmt.Sprintf(`didx_index_resizes_total{index=%q}`, e.name))

	log.Debugf("opened index %s (%d keys, %d bytes)", e.path, e.tree.Len(), e.tree.Capacity())
	go e.serve()
	return e
}

func openTemp() (*rbtree.Tree[uint64], error) {
	f, err := os.CreateTemp("", "rbidx-*.idx")
	if err != nil {
		return nil, errors.Wrap(err, "rbidx: create temp file")
	}
	tree, err := rbtree.Open[uint64](f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	return tree, nil
}

// serve applies requests until the queue is closed and drained.
func (e *rbidxImpl) serve() {
	defer close(e.done)
	for {
		req, ok := e.queue.Next()
		if !ok {
			break
		}
		req.reply <- e.apply(req)
	}
	e.closeErr = e.tree.Close()
	if e.temp {
		if err := os.Remove(e.path); err != nil && e.closeErr == nil {
			e.closeErr = err
		}
	}
	log.Debugf("closed index %s", e.path)
}

// call submits req and waits for the reply. Streaming requests wait without a deadline
// since the owner keeps using the caller's reader or writer until it replies.
func (e *rbidxImpl) call(req request) response {
	req.reply = make(chan response, 1)
	if !e.queue.Push(&req) {
		return response{err: db.ErrClosed}
	}

	if req.w != nil || req.r != nil {
		return <-req.reply
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	select {
	case resp := <-req.reply:
		return resp
	case <-timer.C:
		return response{err: errors.Wrapf(db.ErrTimeout, "rbidx: %s after %s", req.op, e.timeout)}
	}
}

func (op opType) String() string {
	switch op {
	case opAdd:
		return "add"
	case opDelete:
		return "delete"
	case opHas:
		return "has"
	case opLen:
		return "len"
	case opRange:
		return "range"
	case opDump:
		return "dump"
	case opCheck:
		return "check"
	case opSave:
		return "save"
	case opLoad:
		return "load"
	case opInfo:
		return "info"
	default:
		return "unknown"
	}
}

// apply runs on the owning goroutine only.
func (e *rbidxImpl) apply(req *request) response {
	switch req.op {
	case opAdd, opDelete:
		return e.applyWrite(req)
	case opHas:
		return response{ok: e.tree.Has(req.key), err: e.tree.Err()}
	case opLen:
		return response{n: e.tree.Len(), err: e.tree.Err()}
	case opRange:
		keys := make([]uint64, 0, min(max(req.limit, 0), 1024))
		e.tree.Range(req.from, req.to, func(k uint64) bool {
			keys = append(keys, k)
			return req.limit <= 0 || len(keys) < req.limit
		})
		return response{keys: keys, err: e.tree.Err()}
	case opDump:
		return response{err: translate(e.tree.WriteDot(req.w))}
	case opCheck:
		return response{err: translate(e.tree.Check())}
	case opSave:
		return response{err: e.save(req.w)}
	case opLoad:
		return response{err: e.load(req.r)}
	case opInfo:
		return response{info: e.info()}
	default:
		return response{err: errors.Errorf("rbidx: unknown request %d", req.op)}
	}
}

func (e *rbidxImpl) applyWrite(req *request) response {
	capacity := e.tree.Capacity()

	var err error
	if req.op == opAdd {
		err = e.tree.Add(req.key)
		switch {
		case err == nil:
			e.adds.Inc()
		case errors.Is(err, rbtree.ErrDuplicateKey):
			e.duplicates.Inc()
		}
	} else {
		err = e.tree.Del(req.key)
		if err == nil {
			e.deletes.Inc()
		}
	}

	if e.tree.Capacity() != capacity {
		e.resizes.Inc()
		log.Debugf("index %s resized from %d to %d bytes", e.name, capacity, e.tree.Capacity())
	}
	if err != nil && !errors.Is(err, rbtree.ErrDuplicateKey) {
		log.Errorf("index %s failed on %s(%d): %v", e.name, req.op, req.key, err)
	}
	if err == nil || errors.Is(err, rbtree.ErrDuplicateKey) {
		e.SetWriteIdx(req.writeIdx)
	}
	return response{err: translate(err)}
}

func (e *rbidxImpl) info() treeInfo {
	return treeInfo{
		len:      e.tree.Len(),
		occupy:   e.tree.Occupy(),
		capacity: e.tree.Capacity(),
		depths:   util.IntStats(e.tree.Depths()),
		checkErr: e.tree.Check(),
	}
}

// translate maps tree errors to the db package errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rbtree.ErrDuplicateKey):
		return db.ErrDuplicateKey
	case errors.Is(err, rbtree.ErrClosed):
		return db.ErrClosed
	default:
		return err
	}
}

// --------------------------------------------------------------------------
// IndexDB Interface Implementation - Write Operations
// --------------------------------------------------------------------------

// Add inserts key
func (e *rbidxImpl) Add(key uint64, writeIndex uint64) error {
	return e.call(request{op: opAdd, key: key, writeIdx: writeIndex}).err
}

// Delete removes key, a missing key is not an error
func (e *rbidxImpl) Delete(key uint64, writeIndex uint64) error {
	return e.call(request{op: opDelete, key: key, writeIdx: writeIndex}).err
}

// --------------------------------------------------------------------------
// IndexDB Interface Implementation - Query Operations
// --------------------------------------------------------------------------

// Has checks whether key is indexed
func (e *rbidxImpl) Has(key uint64) (bool, error) {
	resp := e.call(request{op: opHas, key: key})
	return resp.ok, resp.err
}

// Len returns the number of indexed keys
func (e *rbidxImpl) Len() (uint64, error) {
	resp := e.call(request{op: opLen})
	return resp.n, resp.err
}

// Range returns up to limit keys in [from, to] in ascending order
func (e *rbidxImpl) Range(from, to uint64, limit int) ([]uint64, error) {
	resp := e.call(request{op: opRange, from: from, to: to, limit: limit})
	return resp.keys, resp.err
}

// --------------------------------------------------------------------------
// IndexDB Interface Implementation - Diagnostic Operations
// --------------------------------------------------------------------------

// Dump writes the tree as Graphviz digraph to w
func (e *rbidxImpl) Dump(w io.Writer) error {
	return e.call(request{op: opDump, w: w}).err
}

// Check verifies the red-black tree invariants
func (e *rbidxImpl) Check() error {
	return e.call(request{op: opCheck}).err
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes a snapshot of all keys to w. The snapshot is consistent since
// no write is applied while it is taken.
func (e *rbidxImpl) Save(w io.Writer) error {
	return e.call(request{op: opSave, w: w}).err
}

// Load replaces the index content with the snapshot read from r
func (e *rbidxImpl) Load(r io.Reader) error {
	return e.call(request{op: opLoad, r: r}).err
}

func (e *rbidxImpl) save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(rbidxVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, e.currIndex.Load()); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, e.tree.Len()); err != nil {
		return err
	}

	// Write keys in ascending order
	var buf [8]byte
	var err error
	e.tree.Ascend(func(k uint64) bool {
		binary.LittleEndian.PutUint64(buf[:], k)
		_, err = bw.Write(buf[:])
		return err == nil
	})
	if err != nil {
		return err
	}
	if err := e.tree.Err(); err != nil {
		return translate(err)
	}

	return bw.Flush()
}

func (e *rbidxImpl) load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != rbidxVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, rbidxVersion)
	}

	var writeIdx, count uint64
	if err := binary.Read(br, binary.LittleEndian, &writeIdx); err != nil {
		return err
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	// Read all keys before touching the index, a truncated snapshot leaves it intact
	keys := make([]uint64, 0, min(count, 1<<20))
	var buf [8]byte
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return err
		}
		k := binary.LittleEndian.Uint64(buf[:])
		if i > 0 && k <= keys[i-1] {
			return fmt.Errorf("invalid snapshot: key %d at position %d is not ascending", k, i)
		}
		keys = append(keys, k)
	}

	if err := e.reset(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.tree.Add(k); err != nil {
			return translate(err)
		}
	}

	// a loaded snapshot defines the write index, even if it is lower
	e.currIndex.Store(writeIdx)
	log.Infof("loaded %d keys into index %s (write index %d)", count, e.name, writeIdx)
	return nil
}

// reset replaces the tree with an empty one on the same file
func (e *rbidxImpl) reset() error {
	if err := e.tree.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(e.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "rbidx: reset")
	}
	tree, err := rbtree.Open[uint64](f)
	if err != nil {
		_ = f.Close()
		return err
	}
	e.tree = tree
	return nil
}

// --------------------------------------------------------------------------
// IndexDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the index
func (e *rbidxImpl) GetInfo() db.DatabaseInfo {
	currentWriteIndex := e.currIndex.Load()
	resp := e.call(request{op: opInfo})

	meta := &struct {
		CurrentWriteIndex uint64     `json:"current_write_index"`
		Path              string     `json:"path"`
		Keys              uint64     `json:"keys"`
		OccupiedBytes     uint64     `json:"occupied_bytes"`
		CapacityBytes     uint64     `json:"capacity_bytes"`
		LeafDepth         util.Stats `json:"leaf_depth"`
		Invariants        string     `json:"invariants"`
	}{
		CurrentWriteIndex: currentWriteIndex,
		Path:              e.path,
		Keys:              resp.info.len,
		OccupiedBytes:     resp.info.occupy,
		CapacityBytes:     resp.info.capacity,
		LeafDepth:         resp.info.depths,
		Invariants:        "ok",
	}
	switch {
	case resp.err != nil:
		meta.Invariants = resp.err.Error()
	case resp.info.checkErr != nil:
		meta.Invariants = resp.info.checkErr.Error()
	}

	supportedFeatures := []db.Feature{
		db.FeatureAdd, db.FeatureDelete,
		db.FeatureHas, db.FeatureLen, db.FeatureRange,
		db.FeatureDump, db.FeatureCheck,
		db.FeatureSave, db.FeatureLoad,
	}

	return db.DatabaseInfo{
		SizeBytes:         int(resp.info.capacity),
		DbType:            db.ImplRBIdx,
		SupportedFeatures: supportedFeatures,
		Metadata:          meta,
	}
}

// SupportsFeature checks if this implementation supports a specific IndexDB feature
func (e *rbidxImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureAdd |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureLen |
		db.FeatureRange |
		db.FeatureDump |
		db.FeatureCheck |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close stops the owning goroutine after it drained all queued requests,
// then unmaps and closes the index file
func (e *rbidxImpl) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.queue.Close()
	<-e.done
	return e.closeErr
}

// --------------------------------------------------------------------------
// Index and Timestamp Management
// --------------------------------------------------------------------------

// SetWriteIdx updates the current index if newIdx is greater than the current one
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *rbidxImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := e.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if e.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (e *rbidxImpl) WriteIdx() uint64 {
	return e.currIndex.Load()
}
