// Package hubitat drives smart lights through the Hubitat Maker API.
// Color changes run on a background worker so webhook handlers never wait
// on the hub; the whole interaction is best effort.
package hubitat

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// color is an HSL triple in Hubitat's 0-100 ranges (hue included).
type color struct {
	Hue        int
	Saturation int
	Level      int
}

// palette is the fixed set of party colors a job may pick from.
var palette = []color{
	{92, 100, 94},
	{72, 100, 94},
	{41, 100, 94},
	{5, 100, 94},
	{56, 100, 94},
	{79, 100, 94},
	{14, 100, 94},
	{0, 100, 94},
	{44, 50, 83},
}

const defaultQueueSize = 16

// Config carries the Maker API connection details.
type Config struct {
	// BaseURL is the hub address including scheme, e.g. "http://10.0.0.5".
	BaseURL string
	// AppID is the Maker API app instance id.
	AppID string
	// AccessToken authenticates Maker API calls.
	AccessToken string
	// DeviceIDs are the lights to recolor on every job.
	DeviceIDs []string
	// QueueSize bounds pending jobs; zero means the default.
	QueueSize int
}

// Service runs color-change jobs from a bounded queue on one worker
// goroutine. Submissions when the queue is full are dropped.
type Service struct {
	cfg    Config
	http   *http.Client
	jobs   chan string
	wg     sync.WaitGroup
	once   sync.Once
	logger *slog.Logger
}

// New starts the worker and returns the service. Call Close to drain it.
func New(cfg Config, logger *slog.Logger) *Service {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	s := &Service{
		cfg:    cfg,
		http:   &http.Client{Timeout: 5 * time.Second},
		jobs:   make(chan string, size),
		logger: logger.With("subsystem", "hubitat"),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Submit enqueues one color-change job and returns its id without waiting
// for the outcome. A full queue drops the job.
func (s *Service) Submit() string {
	jobID := uuid.NewString()
	select {
	case s.jobs <- jobID:
	default:
		s.logger.Warn("color job dropped, queue full", "job_id", jobID)
	}
	return jobID
}

// Close stops accepting jobs and waits for the worker to finish the queue.
func (s *Service) Close() {
	s.once.Do(func() { close(s.jobs) })
	s.wg.Wait()
}

func (s *Service) run() {
	defer s.wg.Done()
	for jobID := range s.jobs {
		s.changeColor(jobID)
	}
}

// changeColor picks one random palette color and applies it to every
// configured device, retrying each device once. Failures are logged and
// otherwise ignored; the caller already got their confirmation clip.
func (s *Service) changeColor(jobID string) {
	c := palette[rand.IntN(len(palette))]
	for _, deviceID := range s.cfg.DeviceIDs {
		if err := s.setColor(deviceID, c); err != nil {
			s.logger.Warn("set color failed, retrying",
				"job_id", jobID, "device_id", deviceID, "error", err)
			if err := s.setColor(deviceID, c); err != nil {
				s.logger.Warn("set color retry failed",
					"job_id", jobID, "device_id", deviceID, "error", err)
				continue
			}
		}
		s.logger.Info("color applied",
			"job_id", jobID, "device_id", deviceID, "hue", c.Hue)
	}
}

func (s *Service) setColor(deviceID string, c color) error {
	// The Maker API takes the color map as a JSON path segment.
	arg := fmt.Sprintf(`{"hue":%d,"saturation":%d,"level":%d}`, c.Hue, c.Saturation, c.Level)
	endpoint := fmt.Sprintf("%s/apps/api/%s/devices/%s/setColor/%s?access_token=%s",
		s.cfg.BaseURL, s.cfg.AppID, deviceID,
		url.PathEscape(arg), url.QueryEscape(s.cfg.AccessToken))

	res, err := s.http.Get(endpoint)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("maker api status %d", res.StatusCode)
	}
	return nil
}
