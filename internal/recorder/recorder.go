package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/john/modwatch/internal/report"
)

// reportFile manages a single JSONL file of classification reports
type reportFile struct {
	file         *os.File
	writer       *bufio.Writer
	createdAt    time.Time
	bytesWritten int64
	pending      []report.Report
	platform     string
	channel      string
	filename     string
}

// Recorder buffers classification reports and writes them to per-channel
// JSONL files, rotating on time or size and queuing rotated files for upload
type Recorder struct {
	outputDir       string
	bufferSize      int
	rotateMinutes   int
	rotateMegabytes int64

	currentFiles map[string]*reportFile // key: "platform_channel"
	mu           sync.Mutex
}

// New creates a new recorder
func New(outputDir string, bufferSize, rotateMinutes, rotateMegabytes int) *Recorder {
	return &Recorder{
		outputDir:       outputDir,
		bufferSize:      bufferSize,
		rotateMinutes:   rotateMinutes,
		rotateMegabytes: int64(rotateMegabytes) * 1024 * 1024,
		currentFiles:    make(map[string]*reportFile),
	}
}

// Start begins recording reports
func (r *Recorder) Start(ctx context.Context, reportChan <-chan report.Report, fileChan chan<- string) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case rep := <-reportChan:
			if err := r.record(rep); err != nil {
				log.Printf("Error recording report: %v", err)
			}

		case <-ticker.C:
			r.checkRotation(fileChan)

		case <-ctx.Done():
			log.Println("Recorder shutting down, flushing reports...")
			r.flushAll(fileChan)
			return ctx.Err()
		}
	}
}

// record appends a single report to its channel's file buffer
func (r *Recorder) record(rep report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s_%s", rep.Platform, rep.Channel)
	rf := r.currentFiles[key]

	if rf == nil {
		var err error
		rf, err = r.createReportFile(rep.Platform, rep.Channel)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		r.currentFiles[key] = rf
	}

	rf.pending = append(rf.pending, rep)

	if len(rf.pending) >= r.bufferSize {
		if err := r.flushReportFile(rf); err != nil {
			return fmt.Errorf("flush reports: %w", err)
		}
	}

	return nil
}

// createReportFile opens a new JSONL file for a platform/channel pair
func (r *Recorder) createReportFile(platform, channel string) (*reportFile, error) {
	timestamp := time.Now().UTC().Format("20060102_1504")
	filename := fmt.Sprintf("%s_%s_%s.jsonl", platform, channel, timestamp)
	path := filepath.Join(r.outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	log.Printf("Created new report file: %s", filename)

	return &reportFile{
		file:      file,
		writer:    bufio.NewWriter(file),
		createdAt: time.Now(),
		pending:   make([]report.Report, 0, r.bufferSize),
		platform:  platform,
		channel:   channel,
		filename:  filename,
	}, nil
}

// flushReportFile writes pending reports to disk
func (r *Recorder) flushReportFile(rf *reportFile) error {
	for _, rep := range rf.pending {
		data, err := json.Marshal(rep)
		if err != nil {
			log.Printf("Error marshaling report: %v", err)
			continue
		}

		n, err := rf.writer.Write(data)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		rf.bytesWritten += int64(n)

		if err := rf.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
		rf.bytesWritten += 1
	}

	rf.pending = rf.pending[:0]

	return rf.writer.Flush()
}

// checkRotation checks if any files need rotation
func (r *Recorder) checkRotation(fileChan chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, rf := range r.currentFiles {
		needsRotation := false

		if time.Since(rf.createdAt).Minutes() >= float64(r.rotateMinutes) {
			needsRotation = true
			log.Printf("Rotating report file %s (time limit)", rf.filename)
		}

		if rf.bytesWritten >= r.rotateMegabytes {
			needsRotation = true
			log.Printf("Rotating report file %s (size limit)", rf.filename)
		}

		if needsRotation {
			r.rotateFile(key, rf, fileChan)
		}
	}
}

// rotateFile closes the current file, queues it for upload, and opens a new one
func (r *Recorder) rotateFile(key string, rf *reportFile, fileChan chan<- string) {
	if err := r.flushReportFile(rf); err != nil {
		log.Printf("Error flushing reports during rotation: %v", err)
	}
	if err := rf.file.Close(); err != nil {
		log.Printf("Error closing file during rotation: %v", err)
	}

	path := filepath.Join(r.outputDir, rf.filename)
	select {
	case fileChan <- path:
		log.Printf("Queued report file for upload: %s", rf.filename)
	default:
		log.Printf("Warning: upload queue full, file will be uploaded later: %s", rf.filename)
	}

	newRf, err := r.createReportFile(rf.platform, rf.channel)
	if err != nil {
		log.Printf("Error creating new report file: %v", err)
		delete(r.currentFiles, key)
		return
	}

	r.currentFiles[key] = newRf
}

// flushAll flushes all report files and closes them
func (r *Recorder) flushAll(fileChan chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, rf := range r.currentFiles {
		if err := r.flushReportFile(rf); err != nil {
			log.Printf("Error flushing reports: %v", err)
		}
		if err := rf.file.Close(); err != nil {
			log.Printf("Error closing file: %v", err)
		}

		path := filepath.Join(r.outputDir, rf.filename)
		select {
		case fileChan <- path:
			log.Printf("Queued final report file for upload: %s", rf.filename)
		default:
			log.Printf("Warning: upload queue full for final file: %s", rf.filename)
		}

		delete(r.currentFiles, key)
	}

	log.Println("All report files flushed and closed")
}
