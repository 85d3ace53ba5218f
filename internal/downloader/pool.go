// internal/downloader/pool.go
package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one image download: the source URL plus the filename to write
// it under (derived from chapter ordinal and page index by the caller).
type Job struct {
	URL      string
	Filename string
}

// WorkerPool manages concurrent image downloads using a worker pool pattern
type WorkerPool struct {
	downloader  *Downloader
	concurrency int

	// OnComplete, when set, is invoked after every finished job
	// (success or failure). It drives the progress bar.
	OnComplete func(*DownloadResult)
}

// NewWorkerPool creates a new worker pool with specified concurrency
func NewWorkerPool(concurrency int, timeout time.Duration, userAgent string) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16 // A chapter is ~50 images; more workers just trips the CDN limiter
	}

	return &WorkerPool{
		downloader:  NewDownloader(timeout, userAgent),
		concurrency: concurrency,
	}
}

// DownloadBatch downloads multiple files concurrently using the worker pool
func (wp *WorkerPool) DownloadBatch(ctx context.Context, jobs []Job, opts DownloadOptions) []*DownloadResult {
	if len(jobs) == 0 {
		return []*DownloadResult{}
	}

	jobCh := make(chan Job, len(jobs))
	results := make(chan *DownloadResult, len(jobs))

	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency; w++ {
		wg.Add(1)
		go wp.worker(ctx, w, jobCh, results, opts, &wg)
	}

	go func() {
		for _, job := range jobs {
			jobCh <- job
		}
		close(jobCh)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	allResults := make([]*DownloadResult, 0, len(jobs))
	for result := range results {
		if wp.OnComplete != nil {
			wp.OnComplete(result)
		}
		allResults = append(allResults, result)
	}

	return allResults
}

// worker processes download jobs from the jobs channel
func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan Job, results chan<- *DownloadResult, opts DownloadOptions, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Debug().Int("worker_id", id).Msg("Worker started")

	for job := range jobs {
		// Check if context is cancelled
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", id).Msg("Worker cancelled")
			return
		default:
		}

		log.Debug().
			Int("worker_id", id).
			Str("url", job.URL).
			Msg("Worker processing download")

		jobOpts := opts
		jobOpts.Filename = job.Filename
		result := wp.downloader.Download(ctx, job.URL, jobOpts)

		select {
		case results <- result:
		case <-ctx.Done():
			return
		}
	}

	log.Debug().Int("worker_id", id).Msg("Worker finished")
}
