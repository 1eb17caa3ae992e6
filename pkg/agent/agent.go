// Package agent serializes GRC session operations behind a Redis job queue:
// one goroutine pops jobs with BRPOP, drives them through a single
// session.Session, and publishes the outcome, the same shape as a
// Redis-list command watcher paired with pub/sub status notification.
package agent

import (
	"log"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/grovety/grc/pkg/redisq"
	"github.com/grovety/grc/pkg/session"
)

// Op names the session operation a Job requests.
type Op string

const (
	OpSetConfig    Op = "set-config"
	OpClearState   Op = "clear-state"
	OpTrain        Op = "train"
	OpInference    Op = "inference"
	OpClassesCount Op = "classes-count"
	OpDownload     Op = "download"
	OpUpload       Op = "upload"
	OpReset        Op = "reset"
)

// Job is one unit of work popped off the command list, CBOR-encoded by the
// producer. ID is echoed back on Result so a producer can correlate replies.
type Job struct {
	ID         string          `cbor:"id"`
	Op         Op              `cbor:"op"`
	Params     []session.Param `cbor:"params,omitempty"`
	Flags      session.Flags   `cbor:"flags,omitempty"`
	Tag        uint32          `cbor:"tag,omitempty"`
	Values     []float32       `cbor:"values,omitempty"`
	ClassCount int             `cbor:"class_count,omitempty"`
}

// Result is the CBOR-encoded reply published after a Job is processed.
type Result struct {
	ID         string    `cbor:"id"`
	Op         Op        `cbor:"op"`
	Ok         bool      `cbor:"ok"`
	Error      string    `cbor:"error,omitempty"`
	ClassIndex int       `cbor:"class_index,omitempty"`
	Tag        uint32    `cbor:"tag,omitempty"`
	ClassCount int       `cbor:"class_count,omitempty"`
	Values     []float32 `cbor:"values,omitempty"`
}

// Agent dispatches Jobs from a Redis list onto a single session.Session. It
// does not run sessions concurrently: one goroutine drains the list, so the
// session is never driven from two goroutines at once.
type Agent struct {
	sess          *session.Session
	redis         *redisq.Client
	commandKey    string
	resultChannel string
	stopCh        chan struct{}
}

// New builds an Agent. commandKey is the Redis list jobs are BRPOP'd from;
// resultChannel is the pub/sub channel each Result is published on.
func New(sess *session.Session, redisClient *redisq.Client, commandKey, resultChannel string) *Agent {
	return &Agent{
		sess:          sess,
		redis:         redisClient,
		commandKey:    commandKey,
		resultChannel: resultChannel,
		stopCh:        make(chan struct{}),
	}
}

// Stop signals Run to exit. Run checks for the signal only between jobs:
// while it is blocked in BRPOP it returns after the next job is popped and
// processed. Safe to call once.
func (a *Agent) Stop() {
	close(a.stopCh)
}

// Run blocks, processing jobs until Stop is called. It is the moral
// equivalent of a Redis command watcher, but every job runs synchronously
// before the next BRPOP so device access stays strictly one-at-a-time.
func (a *Agent) Run() {
	log.Printf("grc agent: watching command list %q", a.commandKey)
	for {
		select {
		case <-a.stopCh:
			log.Printf("grc agent: stopping")
			return
		default:
			payload, err := a.redis.BRPop(0*time.Second, a.commandKey)
			if err != nil {
				if err != redis.Nil {
					log.Printf("grc agent: BRPOP on %s: %v", a.commandKey, err)
					time.Sleep(1 * time.Second)
				}
				continue
			}
			if payload == nil {
				continue
			}
			a.handle(payload)
		}
	}
}

// handle decodes one job payload, dispatches it, and publishes the result.
func (a *Agent) handle(payload []byte) {
	var job Job
	if err := cbor.Unmarshal(payload, &job); err != nil {
		log.Printf("grc agent: decode job: %v", err)
		return
	}
	log.Printf("grc agent: job %s op=%s", job.ID, job.Op)

	result := a.dispatch(job)
	out, err := cbor.Marshal(result)
	if err != nil {
		log.Printf("grc agent: encode result for job %s: %v", job.ID, err)
		return
	}
	if err := a.redis.Publish(a.resultChannel, out); err != nil {
		log.Printf("grc agent: publish result for job %s: %v", job.ID, err)
	}
}

// dispatch runs one Job against the session and always returns a Result,
// never an error: failures are reported inside the Result itself so every
// job gets exactly one reply.
func (a *Agent) dispatch(job Job) Result {
	result := Result{ID: job.ID, Op: job.Op}

	var err error
	switch job.Op {
	case OpSetConfig:
		err = a.sess.SetConfig(job.Params)
	case OpClearState:
		err = a.sess.ClearState()
	case OpTrain:
		var idx int
		idx, err = a.sess.Train(job.Flags, job.Tag, job.Values)
		result.ClassIndex = idx
	case OpInference:
		var tag uint32
		tag, err = a.sess.Inference(job.Flags, job.Tag, job.Values)
		result.Tag = tag
	case OpClassesCount:
		var n int
		n, err = a.sess.ClassesCount()
		result.ClassCount = n
	case OpDownload:
		var values []float32
		var classCount int
		values, classCount, err = a.sess.Download()
		result.Values = values
		result.ClassCount = classCount
	case OpUpload:
		err = a.sess.Upload(job.Values, job.ClassCount)
	case OpReset:
		err = a.sess.Reset()
	default:
		result.Error = "grc agent: unknown op: " + string(job.Op)
		return result
	}

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Ok = true
	return result
}
