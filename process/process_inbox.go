package main

import (
	"context"
	"flag"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"wellog/models"
	"wellog/pkg/scan"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	minConf float64
)

// MIME mapping to avoid opening files repeatedly
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// preload caches: one map per table keyed by file name, so the pool does at
// most one read query per new file.
type preloadState struct {
	uploadsByFile map[string]*models.Upload
	entryByFile   map[string]*models.JournalEntry
	mu            sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{
		uploadsByFile: make(map[string]*models.Upload, 1024),
		entryByFile:   make(map[string]*models.JournalEntry, 1024),
	}
}

func (ps *preloadState) getUpload(name string) (*models.Upload, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	u, ok := ps.uploadsByFile[name]
	return u, ok
}
func (ps *preloadState) putUpload(u *models.Upload) {
	ps.mu.Lock()
	ps.uploadsByFile[u.FileName] = u
	ps.mu.Unlock()
}
func (ps *preloadState) getEntry(name string) (*models.JournalEntry, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	e, ok := ps.entryByFile[name]
	return e, ok
}
func (ps *preloadState) putEntry(e *models.JournalEntry) {
	ps.mu.Lock()
	ps.entryByFile[e.FileName] = e
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans an inbox directory of photographed journal pages, creates Upload
// rows, runs the scan pipeline to create/link JournalEntry rows, optional
// watch mode for dropped-in files.
func main() {
	dirFlag := flag.String("dir", defaultInbox(), "directory to scan for journal page photos")
	profileID := flag.Uint("profile-id", 0, "Profile ID to assign uploads to (if omitted attempts admin profile)")
	dryRun := flag.Bool("dry-run", false, "Skip all DB writes; just scan and print what would be extracted")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Float64Var(&minConf, "min-conf", 0, "Minimum ensemble confidence to accept a page (0 accepts everything)")
	flag.Parse()

	if *dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dirFlag)
		files := listImageFiles(*dirFlag)
		log.Printf("Found %d candidate files", len(files))
		for _, f := range files {
			psc, err := scan.Run(context.Background(), filepath.Join(*dirFlag, f), scan.Options{})
			if err != nil {
				log.Printf("scan %s failed: %v", f, err)
				continue
			}
			logV("scan %s conf=%.1f profile=%s rot=%d text=%q", f, psc.Confidence, psc.WonProfile, psc.WonRotation, psc.CorrectedText)
		}
		return
	}

	db = mustInitDBFromEnv()
	profile := resolveProfile(*profileID)
	ps := preloadAll(profile)
	log.Printf("Preloaded: uploads=%d entries=%d", len(ps.uploadsByFile), len(ps.entryByFile))

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, profile, ps, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, profile, ps, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func defaultInbox() string {
	if v := os.Getenv("SCAN_INBOX"); v != "" {
		return v
	}
	return "public/journal"
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// preloadAll fetches existing uploads and entries to minimize per-file queries.
func preloadAll(profile models.Profile) *preloadState {
	ps := newPreloadState()
	var ups []models.Upload
	if err := db.Where("profile_id = ?", profile.ID).Find(&ups).Error; err == nil {
		for i := range ups {
			u := ups[i]
			ps.uploadsByFile[u.FileName] = &u
		}
	}
	var entries []models.JournalEntry
	if err := db.Where("user_id = ?", profile.UserID).Find(&entries).Error; err == nil {
		for i := range entries {
			e := entries[i]
			ps.entryByFile[e.FileName] = &e
		}
	}
	return ps
}

// resolveProfile finds the profile either by explicit id or by admin username.
func resolveProfile(id uint) models.Profile {
	var p models.Profile
	if id != 0 {
		if err := db.First(&p, id).Error; err != nil {
			log.Fatalf("failed to find profile id %d: %v", id, err)
		}
		return p
	}
	var admin models.User
	if err := db.Where("username = ?", "admin").First(&admin).Error; err != nil {
		log.Fatalf("no --profile-id provided and admin user not found: %v", err)
	}
	if err := db.Where("user_id = ?", admin.ID).First(&p).Error; err != nil {
		log.Fatalf("admin profile not found: %v", err)
	}
	return p
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func watchDirectory(dir string, profile models.Profile, ps *preloadState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files so half-copied photos settle
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, profile, ps, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

// worker pool orchestrator
func runWorkerPool(dir string, profile models.Profile, ps *preloadState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, profile, ps)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile executes idempotent logic to create/fill Upload & JournalEntry.
func processSingleFile(dir, name string, profile models.Profile, ps *preloadState) {
	storePath := filepath.ToSlash(filepath.Join("public", filepath.Base(dir), name))
	filePath := filepath.Join(dir, name)

	if _, ok := ps.getEntry(name); ok { // entry already exists
		logV("SKIP entry exists %s", name)
		return
	}
	up, upExists := ps.getUpload(name)
	if upExists && up.EntryID != nil { // already linked
		logV("SKIP upload already linked %s", name)
		return
	}

	// If upload doesn't exist, create it (DB write)
	if !upExists {
		newUp := models.Upload{ProfileID: profile.ID, FileName: name, StorePath: storePath}
		if ct := mimeFromExt(name); ct != "" {
			newUp.ContentType = ct
		}
		if err := db.Create(&newUp).Error; err != nil {
			if isUniqueConstraintError(err) { // race: someone else created
				if err2 := db.Where("store_path = ?", storePath).First(&newUp).Error; err2 != nil {
					log.Printf("WARN fetch after race failed %s: %v", storePath, err2)
					return
				}
			} else {
				log.Printf("ERROR create upload %s: %v", storePath, err)
				return
			}
		}
		ps.putUpload(&newUp)
		up = &newUp
		log.Printf("NEW upload id=%d file=%s", newUp.ID, name)
	}

	psc, err := scan.Run(context.Background(), filePath, scan.Options{})
	if err != nil {
		log.Printf("scan fail %s: %v", name, err)
		up.Failed = true
		up.FailedReason = err.Error()
		_ = db.Save(up).Error
		return
	}
	if psc.Confidence < minConf {
		logV("scan low conf %s conf=%.1f (min=%.1f)", name, psc.Confidence, minConf)
		return
	}
	up.WonProfile = psc.WonProfile
	up.WonRotation = psc.WonRotation
	up.Confidence = psc.Confidence

	// Re-check if entry created concurrently
	if _, ok := ps.getEntry(name); ok {
		return
	}

	entry := models.JournalEntry{
		UserID:     profile.UserID,
		FileName:   name,
		FreeText:   psc.Record.FreeText,
		Mood:       psc.Record.Mood,
		SleepHours: psc.Record.SleepHours,
		Activities: strings.Join(psc.Record.Activities, ", "),
		Date:       psc.Record.Date,
	}
	if err := db.Create(&entry).Error; err != nil {
		if isUniqueConstraintError(err) { // fetch existing
			var existing models.JournalEntry
			if err2 := db.Where("user_id = ? AND file_name = ?", profile.UserID, name).First(&existing).Error; err2 == nil {
				ps.putEntry(&existing)
				if up.EntryID == nil {
					up.EntryID = &existing.ID
					_ = db.Save(up).Error
				}
			}
		} else {
			log.Printf("ERROR create entry %s: %v", name, err)
		}
		return
	}
	ps.putEntry(&entry)
	if up.EntryID == nil {
		up.EntryID = &entry.ID
	}
	_ = db.Save(up).Error
	log.Printf("ENTRY conf=%.1f mood=%v file=%s upload=%d", psc.Confidence, entry.Mood, name, up.ID)
	// Move the processed page out of the inbox so new photos are processed only once
	if err := moveToProcessed(filePath, name); err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
	} else {
		logV("moved processed %s to public/processed", name)
	}
}

func mimeFromExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := extMime[ext]; ok {
		return m
	}
	return ""
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

// moveToProcessed moves a page out of the inbox into public/processed, shrinking
// oversized photos on the way so the archive stays small.
func moveToProcessed(srcFullPath, name string) error {
	const maxBytes = 1_000_000
	processedDir := filepath.Join("public", "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(processedDir, name)

	fi, err := os.Stat(srcFullPath)
	if err != nil {
		return err
	}
	if fi.Size() <= maxBytes {
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	img, err := imaging.Open(srcFullPath)
	if err != nil { // cannot decode, archive as-is
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	// file size roughly scales with pixel area
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	if scale > 0.95 {
		scale = 0.95
	}
	if scale < 0.1 {
		scale = 0.1
	}
	newW := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	img = imaging.Resize(img, newW, 0, imaging.Lanczos)
	if err := imaging.Save(img, dst); err != nil {
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	_ = os.Remove(srcFullPath)
	return nil
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	return os.Remove(src)
}
