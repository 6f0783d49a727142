package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Polarity says which answers to an item count toward the autism-trait score.
type Polarity int

const (
	// AutismIndicator items score a point on agreement.
	AutismIndicator Polarity = iota
	// NonAutismIndicator items score a point on disagreement.
	NonAutismIndicator
)

func (p Polarity) String() string {
	if p == AutismIndicator {
		return "AUTISM_INDICATOR"
	}
	return "NON_AUTISM_INDICATOR"
}

func (p Polarity) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// QuestionnaireItem is one AQ-10 (child version) statement.
type QuestionnaireItem struct {
	ID       int      `json:"id"`
	Prompt   string   `json:"prompt"`
	Polarity Polarity `json:"polarity"`
}

// ItemCount is the number of AQ-10 items.
const ItemCount = 10

var items = [ItemCount]QuestionnaireItem{
	{1, "S/he often notices small sounds when others do not", AutismIndicator},
	{2, "S/he usually concentrates more on the whole picture, rather than the small details", NonAutismIndicator},
	{3, "In a social group, s/he can easily keep track of several different people's conversations", NonAutismIndicator},
	{4, "S/he finds it easy to go back and forth between different activities", NonAutismIndicator},
	{5, "S/he doesn't know how to keep a conversation going with his/her peers", AutismIndicator},
	{6, "S/he is good at social chit-chat", NonAutismIndicator},
	{7, "When s/he is read a story, s/he finds it difficult to work out the character's intentions or feelings", AutismIndicator},
	{8, "When s/he was in preschool, s/he used to enjoy playing games involving pretending with other children", NonAutismIndicator},
	{9, "S/he finds it easy to work out what someone is thinking or feeling just by looking at their face", NonAutismIndicator},
	{10, "S/he finds it hard to make new friends", AutismIndicator},
}

// Items returns a copy of the item table in id order.
func Items() []QuestionnaireItem {
	out := make([]QuestionnaireItem, ItemCount)
	copy(out, items[:])
	return out
}

// Item looks up an item by id.
func Item(id int) (QuestionnaireItem, bool) {
	if id < 1 || id > ItemCount {
		return QuestionnaireItem{}, false
	}
	return items[id-1], true
}

// Response is the ordinal answer to an item.
type Response int

const (
	DefinitelyDisagree Response = iota
	SlightlyDisagree
	SlightlyAgree
	DefinitelyAgree
)

var responseLabels = [...]string{
	DefinitelyDisagree: "Definitely Disagree",
	SlightlyDisagree:   "Slightly Disagree",
	SlightlyAgree:      "Slightly Agree",
	DefinitelyAgree:    "Definitely Agree",
}

// Valid reports whether r is one of the four answer levels.
func (r Response) Valid() bool { return r >= DefinitelyDisagree && r <= DefinitelyAgree }

func (r Response) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Response(%d)", int(r))
	}
	return responseLabels[r]
}

// ResponseLabels lists the answer labels in ordinal order.
func ResponseLabels() []string {
	return append([]string(nil), responseLabels[:]...)
}

// ParseResponse accepts a digit 0-3 or a label such as "Slightly Agree"
// (case and surrounding space are ignored).
func ParseResponse(s string) (Response, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		r := Response(n)
		if !r.Valid() {
			return 0, fmt.Errorf("response %d out of range 0-3", n)
		}
		return r, nil
	}
	for i, label := range responseLabels {
		if strings.EqualFold(s, label) {
			return Response(i), nil
		}
	}
	return 0, fmt.Errorf("unknown response %q", s)
}

// ResponseSet maps item id to answer. Build one with NewResponseSet or
// ParseResponseSet so it is always complete.
type ResponseSet map[int]Response

// NewResponseSet copies and validates raw answers keyed by item id.
func NewResponseSet(raw map[int]int) (ResponseSet, error) {
	rs := make(ResponseSet, len(raw))
	for id, v := range raw {
		rs[id] = Response(v)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// ParseResponseSet builds a set from textual answers keyed by item id, as
// they arrive from forms and the command line.
func ParseResponseSet(raw map[int]string) (ResponseSet, error) {
	rs := make(ResponseSet, len(raw))
	problems := map[string]string{}
	for id, s := range raw {
		r, err := ParseResponse(s)
		if err != nil {
			problems[fieldName(id)] = err.Error()
			continue
		}
		rs[id] = r
	}
	if len(problems) > 0 {
		return nil, &InputError{Problems: problems}
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// ParseResponseList reads answers for items 1..10 in order from a
// comma-separated list such as "3,0,1,1,2,0,3,1,0,2".
func ParseResponseList(s string) (ResponseSet, error) {
	parts := strings.Split(s, ",")
	if len(parts) != ItemCount {
		return nil, &InputError{Problems: map[string]string{
			"answers": fmt.Sprintf("expected %d answers, got %d", ItemCount, len(parts)),
		}}
	}
	raw := make(map[int]string, ItemCount)
	for i, part := range parts {
		raw[i+1] = part
	}
	return ParseResponseSet(raw)
}

// Validate checks that exactly the ids 1..10 are present with valid answers.
func (rs ResponseSet) Validate() error {
	problems := map[string]string{}
	for id := 1; id <= ItemCount; id++ {
		r, ok := rs[id]
		switch {
		case !ok:
			problems[fieldName(id)] = "missing response"
		case !r.Valid():
			problems[fieldName(id)] = fmt.Sprintf("response %d out of range 0-3", int(r))
		}
	}
	for id := range rs {
		if _, known := Item(id); !known {
			problems[fieldName(id)] = "unknown questionnaire item"
		}
	}
	if len(problems) > 0 {
		return &InputError{Problems: problems}
	}
	return nil
}

// Values returns the answers as integers in item order. The set must be valid.
func (rs ResponseSet) Values() []int {
	out := make([]int, 0, ItemCount)
	ids := make([]int, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out = append(out, int(rs[id]))
	}
	return out
}

// Clone returns an independent copy.
func (rs ResponseSet) Clone() ResponseSet {
	out := make(ResponseSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

func fieldName(id int) string { return "q" + strconv.Itoa(id) }

// itemScore is the point an answer earns for its item.
func itemScore(it QuestionnaireItem, r Response) int {
	switch it.Polarity {
	case AutismIndicator:
		if r >= SlightlyAgree {
			return 1
		}
	case NonAutismIndicator:
		if r <= SlightlyDisagree {
			return 1
		}
	}
	return 0
}
