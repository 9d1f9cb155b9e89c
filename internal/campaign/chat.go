package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/pkg/anthropic"
)

const chatSystemText = `You are a prospect research assistant refining an ongoing outreach campaign. Given the campaign's search request, the conversation so far, and the user's latest instruction, reply with valid JSON: {"answer": "<short reply to the user>", "criteria": {<refined search criteria or null if unchanged>}}. The criteria object uses the fields required_tools, job_titles, industry, company_type, employee_range_min, employee_range_max, company_examples, location, strict_matching.`

const chatHistoryLimit = 10

// chatReply is the JSON shape the refinement model returns.
type chatReply struct {
	Answer   string                `json:"answer"`
	Criteria *model.SearchCriteria `json:"criteria"`
}

// Chat handles one refinement turn: persist the user message, ask the model
// for an answer plus refined criteria, re-score the campaign's last result
// when criteria changed, and persist the assistant reply. Draft campaigns
// have nothing to refine yet.
func (m *Manager) Chat(ctx context.Context, id, message string) (*model.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &model.ValidationError{Field: "message", Reason: "must not be empty"}
	}

	campaign, err := m.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status == model.CampaignDraft {
		return nil, &model.InvalidStateError{ID: id, Status: campaign.Status, Op: "chat"}
	}

	if _, err := m.store.AppendChatMessage(ctx, id, "user", message); err != nil {
		return nil, err
	}

	reply := m.refine(ctx, campaign, message)

	if reply.Criteria != nil {
		m.applyRefinement(ctx, id, *reply.Criteria)
	}

	return m.store.AppendChatMessage(ctx, id, "assistant", reply.Answer)
}

// refine asks the model for a reply and refined criteria. Model failures
// degrade to a plain acknowledgement with no criteria change.
func (m *Manager) refine(ctx context.Context, campaign *model.Campaign, message string) chatReply {
	fallback := chatReply{Answer: "Noted. I could not refine the search automatically right now; the current results stand."}
	if m.llm == nil {
		return fallback
	}

	history, err := m.store.ListChatMessages(ctx, campaign.ID)
	if err != nil {
		zap.L().Warn("chat history load failed", zap.String("id", campaign.ID), zap.Error(err))
	}

	reply, err := m.askModel(ctx, campaign, history, message)
	if err != nil {
		zap.L().Warn("chat refinement failed", zap.String("id", campaign.ID), zap.Error(err))
		return fallback
	}
	return reply
}

func (m *Manager) askModel(ctx context.Context, campaign *model.Campaign, history []model.ChatMessage, message string) (chatReply, error) {
	reqJSON, err := json.Marshal(campaign.Request)
	if err != nil {
		return chatReply{}, eris.Wrap(err, "campaign: marshal request")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Campaign request: %s\n\nConversation so far:\n", reqJSON)
	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(&b, "\nLatest instruction: %s", message)

	resp, err := m.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     m.llmModel,
		MaxTokens: 1024,
		System:    anthropic.BuildCachedSystemBlocks(chatSystemText),
		Messages:  []anthropic.Message{{Role: "user", Content: b.String()}},
	})
	if err != nil {
		return chatReply{}, eris.Wrap(err, "campaign: chat message")
	}
	resp.Usage.LogCost(m.llmModel, "campaign-chat")

	var reply chatReply
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &reply); err != nil {
		return chatReply{}, eris.Wrap(err, "campaign: unmarshal chat reply")
	}
	if strings.TrimSpace(reply.Answer) == "" {
		reply.Answer = "Understood."
	}
	if reply.Criteria != nil {
		if err := reply.Criteria.Validate(); err != nil {
			reply.Criteria = nil
		}
	}
	return reply, nil
}

// applyRefinement re-scores the last finished result against refined
// criteria and records the outcome.
func (m *Manager) applyRefinement(ctx context.Context, id string, criteria model.SearchCriteria) {
	st := m.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.lastResult == nil {
		return
	}
	st.lastResult = m.pipeline.Rescore(st.lastResult, criteria)
	st.rec.Append(model.EventInfo, fmt.Sprintf("Results re-scored against refined criteria: %d matches", st.lastResult.CriteriaMatched))

	progress := model.CampaignProgress{
		ProspectsFound: st.lastResult.CriteriaMatched,
		TotalSearched:  st.lastResult.TotalFound,
	}
	if err := m.store.UpdateCampaignProgress(ctx, id, progress); err != nil {
		zap.L().Error("campaign progress update failed", zap.String("id", id), zap.Error(err))
	}
}
