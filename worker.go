package res

// work is the queue of pending tasks for a single worker group key. It is
// created when the first task for the key is scheduled, handed to a single
// worker, and deleted once the queue runs empty.
type work struct {
	s     *Service
	key   string
	queue []func()
}

// startWorker processes work items off the shared work channel until the
// channel is closed.
func (s *Service) startWorker(ch chan *work) {
	for w := range ch {
		w.processQueue()
	}
	s.wg.Done()
}

// processQueue runs the queued tasks in submission order until the queue is
// empty. Tasks are executed outside the service mutex; the mutex is only
// held while popping tasks and while deleting the drained work record.
func (w *work) processQueue() {
	var task func()
	idx := 0

	w.s.mu.Lock()
	for len(w.queue) > idx {
		task = w.queue[idx]
		w.s.mu.Unlock()
		idx++
		task()
		w.s.mu.Lock()
	}
	delete(w.s.rwork, w.key)
	w.s.mu.Unlock()
}

// runWith schedules a task on the worker group identified by key. Tasks with
// the same key run in submission order on a single worker; tasks with
// distinct keys run concurrently. Returns false if the service is not
// started, discarding the task.
//
// The state check and the enqueue are atomic under the service mutex, but
// the handoff of a new work record to a worker happens outside it; a blocked
// handoff must not prevent running tasks from completing.
func (s *Service) runWith(key string, task func()) bool {
	s.mu.Lock()
	if s.state != stateStarted {
		s.mu.Unlock()
		return false
	}
	if w, ok := s.rwork[key]; ok {
		w.queue = append(w.queue, task)
		s.mu.Unlock()
		return true
	}
	w := &work{
		s:     s,
		key:   key,
		queue: []func(){task},
	}
	s.rwork[key] = w
	ch := s.workCh
	s.sendWG.Add(1)
	s.mu.Unlock()

	// The send blocks until a worker picks the record up, keeping every
	// record owned by exactly one worker.
	ch <- w
	s.sendWG.Done()
	return true
}
