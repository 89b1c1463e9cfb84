package rpc

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/cicero-ai/nyx/internal/clipboard"
	"github.com/cicero-ai/nyx/internal/nyxerr"
	"github.com/cicero-ai/nyx/internal/store"
)

var log = logging.Logger("nyx-rpc")

const housekeepingInterval = 15 * time.Second

// FuseUnmounter is implemented by the vfs package's mount handle so the
// daemon can tear it down on shutdown without importing bazil.org/fuse
// itself, the analogue of rpc/daemon.rs's fuse_point field.
type FuseUnmounter interface {
	Unmount() error
}

// Daemon is the single-process RPC server: one mutex around the
// database, a separate mutex around the session, and a 15-second
// housekeeping tick, the analogue of rpc/daemon.rs's RpcDaemon.
type Daemon struct {
	dbMu sync.Mutex
	db   *store.NyxDb

	sessionMu sync.Mutex
	session   *Session

	clipboard  clipboard.Writer
	fuse       FuseUnmounter
	httpServer *http.Server
}

// NewDaemon builds a Daemon around an already-unlocked database.
func NewDaemon(db *store.NyxDb, dbfile string, lock [32]byte, timeoutOverride *store.DatabaseTimeout, clipboardTimeout time.Duration, cb clipboard.Writer) *Daemon {
	if cb == nil {
		cb = clipboard.Discard{}
	}
	return &Daemon{
		db:        db,
		session:   newSession(dbfile, lock, db, timeoutOverride, clipboardTimeout),
		clipboard: cb,
	}
}

// SetFuse attaches the mounted filesystem handle so shutdown can unmount
// it; called once by the launcher after mounting, if FUSE is in use.
func (d *Daemon) SetFuse(f FuseUnmounter) { d.fuse = f }

// DB and Locker expose the daemon's database and its guarding mutex so the
// vfs package can read the ssh_keys collection under the same lock the RPC
// dispatcher uses, the analogue of fs.rs's NyxFs sharing daemon.rs's
// Arc<Mutex<NyxDb>> rather than holding a second copy.
func (d *Daemon) DB() *store.NyxDb    { return d.db }
func (d *Daemon) Locker() sync.Locker { return &d.dbMu }

// Start binds the loopback HTTP listener and runs the housekeeping tick
// until the process exits, the analogue of RpcDaemon::start (the FUSE
// mount itself is the vfs package's concern, wired in by the launcher
// before Start is called).
func (d *Daemon) Start(host string, port uint16) error {
	addr := host + ":" + strconv.Itoa(int(port))
	mux := http.NewServeMux()
	mux.HandleFunc("/", d.serveHTTP)

	d.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go d.housekeep()

	log.Infof("Listening for connections on %s...", addr)
	err := d.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return nyxerr.Wrap(nyxerr.Http, err)
	}
	return nil
}

func (d *Daemon) housekeep() {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()
	for range ticker.C {
		d.checkTimer()
	}
}

// checkTimer clears the clipboard once its deadline elapses and shuts the
// daemon down once the session's inactivity deadline elapses, the
// analogue of RpcDaemon::check_timer.
func (d *Daemon) checkTimer() {
	d.sessionMu.Lock()
	now := time.Now()

	if d.session.ClipboardExpiresAt != nil && now.After(*d.session.ClipboardExpiresAt) {
		_ = d.clipboard.Copy("")
		d.session.ClipboardExpiresAt = nil
	}

	expired := d.session.ExpiresAt != nil && now.After(*d.session.ExpiresAt)
	d.sessionMu.Unlock()

	if expired {
		d.shutdown()
	}
}

// serveHTTP is the single entry point for every RPC call, the analogue of
// RpcDaemon::handle.
func (d *Daemon) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeHTTP(w, errResponse(0, 400, "Invalid request body"))
		return
	}

	parts := strings.SplitN(req.Method, ".", 2)
	if len(parts) != 2 {
		writeHTTP(w, errResponse(req.ID, 404, "Method does not exist"))
		return
	}
	namespace, verb := parts[0], parts[1]

	if namespace == "db" && verb == "close" {
		d.shutdown()
		return
	}

	httpResp, res := d.dispatchLocked(req.ID, namespace, verb, req.Params)
	d.updateSession(res)
	writeHTTP(w, httpResp)
}

func (d *Daemon) dispatchLocked(id int, namespace, verb string, params []string) (HTTPResponse, result) {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()

	d.sessionMu.Lock()
	dbfile := d.session.DbFile
	d.sessionMu.Unlock()

	res, err := dispatch(d.db, dbfile, namespace, verb, params)
	if err != nil {
		return errResponse(id, 500, err.Error()), result{}
	}

	if action, aerr := store.ActionFromVerb(verb); aerr == nil {
		if dtype, derr := store.DataTypeFromNamespace(namespace); derr == nil {
			source := firstParam(params)
			dest := ""
			if verb == "copy" || verb == "rename" {
				dest = secondParam(params)
			}
			d.db.History.Add(action, dtype, source, dest)
		}

		if err := d.savedb(); err != nil {
			log.Errorf("failed to save database: %v", err)
		} else {
			// Saved: updateSession must not mark the session modified again.
			res.isModified = false
		}
	}

	return ok(id, res.value), res
}

// savedb persists the database to the session's file using the session's
// lock, the analogue of RpcDaemon::savedb.
func (d *Daemon) savedb() error {
	d.sessionMu.Lock()
	dbfile, lock := d.session.DbFile, d.session.Lock
	d.sessionMu.Unlock()

	if err := d.db.Save(dbfile, lock, nil); err != nil {
		return err
	}

	d.sessionMu.Lock()
	d.session.IsModified = false
	d.sessionMu.Unlock()
	return nil
}

// updateSession refreshes the inactivity deadline and, when the
// dispatched verb copied a secret, the clipboard deadline, the analogue
// of RpcDaemon::update_session.
func (d *Daemon) updateSession(res result) {
	d.sessionMu.Lock()
	defer d.sessionMu.Unlock()

	d.session.refreshExpiry()
	if res.isModified {
		d.session.IsModified = true
	}
	if res.isCopy {
		d.session.refreshClipboard()
	}
}

// shutdown zero-fills the database's sensitive fields, unmounts the
// filesystem if one is attached, and terminates the process, the
// analogue of RpcDaemon::shutdown.
func (d *Daemon) shutdown() {
	d.dbMu.Lock()
	d.db.SecureClear()
	d.dbMu.Unlock()

	if d.fuse != nil {
		_ = d.fuse.Unmount()
	}

	log.Info("Received shutdown order, gracefully exiting.")
	os.Exit(0)
}

func secondParam(params []string) string {
	if len(params) < 2 {
		return ""
	}
	return params[1]
}

func writeHTTP(w http.ResponseWriter, resp HTTPResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
