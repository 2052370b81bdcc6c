package conversation

import "github.com/bnema/jobchat-cli/internal/domain"

// Apply folds one event into the transcript and returns the effects the caller
// must carry out.
func (c *Conversation) Apply(event domain.Event) []Effect {
	switch e := event.(type) {
	case domain.Thinking:
		return c.applyThinking(e)
	case domain.JobSearchStarted:
		return c.applyJobSearchStarted()
	case domain.CareerAdviceStarted:
		return c.applyCareerAdviceStarted()
	case domain.JobResults:
		return c.applyJobResults(e)
	case domain.CareerAdviceChunk:
		return c.applyCareerAdviceChunk(e)
	case domain.CareerAdviceResult:
		return c.applyCareerAdviceResult(e)
	case domain.Sources:
		c.applySources(e)
		return nil
	case domain.AssistantTextChunk:
		return c.applyAssistantText(e)
	case domain.FinalResult:
		return c.applyFinalResult()
	case domain.StreamError:
		return c.applyError(e)
	default:
		return nil
	}
}

func (c *Conversation) applyThinking(e domain.Thinking) []Effect {
	var effects []Effect
	if !c.turn.thinkingSeen {
		c.turn.thinkingSeen = true
		effects = c.hideTyping()
	}

	// Orchestrator narration is muted while a career advice answer streams.
	if c.turn.careerAdviceID != "" {
		return effects
	}

	c.turn.orchestratorText += e.Text
	text := c.turn.orchestratorText
	if c.turn.orchestratorID != "" && c.update(c.turn.orchestratorID, func(m *domain.Message) { m.Text = text }) {
		return effects
	}

	c.turn.orchestratorID = c.appendMessage(domain.Message{
		Author:    domain.AuthorAssistant,
		Text:      text,
		Lane:      domain.LaneOrchestrator,
		Streaming: true,
	})

	return effects
}

func (c *Conversation) applyJobSearchStarted() []Effect {
	c.turn.jobTargetID = c.turn.orchestratorID
	if c.jobSearchVisible {
		return nil
	}
	c.jobSearchVisible = true

	return []Effect{{Kind: EffectShowJobSearch}}
}

func (c *Conversation) applyCareerAdviceStarted() []Effect {
	if c.turn.careerAdviceID == "" {
		c.turn.careerAdviceText = ""
		c.turn.careerAdviceID = c.appendMessage(domain.Message{
			Author:    domain.AuthorAssistant,
			Lane:      domain.LaneCareerAdvice,
			Streaming: true,
		})
	}

	if c.turn.orchestratorID == "" {
		return nil
	}

	orchestratorID := c.turn.orchestratorID
	for _, pending := range c.turn.timers {
		if pending == orchestratorID {
			return nil
		}
	}

	if c.opts.SettleDelay <= 0 {
		c.closeMessage(orchestratorID)
		c.turn.orchestratorID = ""
		c.turn.orchestratorText = ""
		return nil
	}

	c.nextTimer++
	id := c.nextTimer
	c.turn.timers[id] = orchestratorID

	return []Effect{{Kind: EffectScheduleTimer, Timer: id, After: c.opts.SettleDelay, MessageID: orchestratorID}}
}

func (c *Conversation) applyJobResults(e domain.JobResults) []Effect {
	c.turn.hasJobResults = true
	effects := c.hideJobSearch()
	effects = append(effects, c.hideTyping()...)

	target := c.turn.jobTargetID
	if target == "" {
		target = c.turn.orchestratorID
	}
	c.turn.jobTargetID = ""

	if len(e.Jobs) == 0 {
		return effects
	}

	jobs := append([]domain.Job(nil), e.Jobs...)
	attached := target != "" && c.update(target, func(m *domain.Message) {
		m.Jobs = jobs
		m.Streaming = false
	})
	if attached {
		c.releaseLane(target)
		return effects
	}

	c.appendMessage(domain.Message{
		Author: domain.AuthorAssistant,
		Text:   e.Summary,
		Jobs:   jobs,
		Lane:   domain.LaneJobResults,
	})

	return effects
}

func (c *Conversation) applyCareerAdviceChunk(e domain.CareerAdviceChunk) []Effect {
	effects := c.hideTyping()

	c.turn.careerAdviceText += e.Text
	text := c.turn.careerAdviceText
	if c.turn.careerAdviceID != "" && c.update(c.turn.careerAdviceID, func(m *domain.Message) { m.Text = text }) {
		return effects
	}

	c.turn.careerAdviceID = c.appendMessage(domain.Message{
		Author:    domain.AuthorAssistant,
		Text:      text,
		Lane:      domain.LaneCareerAdvice,
		Streaming: true,
	})

	return effects
}

func (c *Conversation) applyCareerAdviceResult(e domain.CareerAdviceResult) []Effect {
	c.turn.hasCareerAdvice = true
	effects := c.hideTyping()

	// Streamed chunks are authoritative when present.
	text := c.turn.careerAdviceText
	if text == "" {
		text = e.Text
	}

	id := c.turn.careerAdviceID
	if id == "" || !c.update(id, func(m *domain.Message) {
		m.Text = text
		m.Streaming = false
	}) {
		id = c.appendMessage(domain.Message{
			Author: domain.AuthorAssistant,
			Text:   text,
			Lane:   domain.LaneCareerAdvice,
		})
	}
	c.turn.careerAdviceID = ""
	c.turn.careerAdviceText = ""

	if len(c.turn.heldCitations) > 0 {
		citations := c.turn.heldCitations
		c.turn.heldCitations = nil
		c.update(id, func(m *domain.Message) { m.Citations = citations })
		c.turn.pendingAdviceID = ""
		return effects
	}
	c.turn.pendingAdviceID = id

	return effects
}

func (c *Conversation) applySources(e domain.Sources) {
	if len(e.Citations) == 0 {
		return
	}
	citations := append([]domain.Citation(nil), e.Citations...)

	if c.turn.pendingAdviceID != "" {
		id := c.turn.pendingAdviceID
		c.turn.pendingAdviceID = ""
		if c.update(id, func(m *domain.Message) { m.Citations = citations }) {
			return
		}
	}

	c.turn.heldCitations = citations
}

func (c *Conversation) applyAssistantText(e domain.AssistantTextChunk) []Effect {
	effects := c.hideTyping()

	if c.turn.responseText != "" {
		c.turn.responseText += "\n\n" + e.Text
	} else {
		c.turn.responseText = e.Text
	}
	text := c.turn.responseText

	if c.turn.responseID != "" && c.update(c.turn.responseID, func(m *domain.Message) { m.Text = text }) {
		return effects
	}

	c.turn.responseID = c.appendMessage(domain.Message{
		Author:    domain.AuthorAssistant,
		Text:      text,
		Lane:      domain.LaneResponse,
		Streaming: true,
	})

	return effects
}

func (c *Conversation) applyFinalResult() []Effect {
	var effects []Effect
	for id := range c.turn.timers {
		effects = append(effects, Effect{Kind: EffectCancelTimer, Timer: id})
	}
	c.turn.timers = map[TimerID]string{}

	c.closeAllOpen()
	c.turn.orchestratorID, c.turn.orchestratorText = "", ""
	c.turn.careerAdviceID, c.turn.careerAdviceText = "", ""
	c.turn.responseID, c.turn.responseText = "", ""
	c.turn.jobTargetID = ""

	effects = append(effects, c.hideTyping()...)
	effects = append(effects, c.hideJobSearch()...)

	return effects
}

func (c *Conversation) applyError(e domain.StreamError) []Effect {
	effects := c.hideTyping()
	if c.suppressed(e.Message) {
		return effects
	}

	c.appendMessage(domain.Message{
		Author: domain.AuthorAssistant,
		Text:   e.Message,
		Lane:   domain.LaneNone,
	})

	return effects
}

// releaseLane clears every lane pointer that refers to a message which is no
// longer open.
func (c *Conversation) releaseLane(id string) {
	if c.turn.orchestratorID == id {
		c.turn.orchestratorID, c.turn.orchestratorText = "", ""
	}
	if c.turn.careerAdviceID == id {
		c.turn.careerAdviceID, c.turn.careerAdviceText = "", ""
	}
	if c.turn.responseID == id {
		c.turn.responseID, c.turn.responseText = "", ""
	}
	for timer, target := range c.turn.timers {
		if target == id {
			delete(c.turn.timers, timer)
		}
	}
}
