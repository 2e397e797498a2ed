package workers

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Worker struct {
	Name     string
	Interval time.Duration
	Run      func()
	Stop     chan struct{}
	stopOnce sync.Once
}

func NewWorker(name string, interval time.Duration, run func()) *Worker {
	return &Worker{
		Name:     name,
		Interval: interval,
		Run:      run,
		Stop:     make(chan struct{}),
	}
}

// Start runs the job once, then on every tick until StopWorker is called.
func (w *Worker) Start() {
	log.Infof("[%s] worker started, interval %s", w.Name, w.Interval)
	w.Run()
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.Run()
		case <-w.Stop:
			log.Infof("[%s] worker stopped", w.Name)
			return
		}
	}
}

// StopWorker returns without waiting for an in-flight run; the loop exits once that run finishes.
func (w *Worker) StopWorker() {
	w.stopOnce.Do(func() { close(w.Stop) })
}
