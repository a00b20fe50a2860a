// Package prompts renders the Korean prompt frames for the two generative
// stages: the analyst (utterance classifier) and the actor (line renderer).
package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

const emptyHistory = "(첫 번째 턴)"

const emotionFramework = `- 보통 (neutral)
- 행복 → 안도 / 웃김 / 감동 / 통쾌함
- 분노 → 불쾌 / 증오 / 권태
- 슬픔 → 그리움 / 후회 / 절망
- 불안 → 무서움 / 걱정 / 초조
- 놀람 → 당황 / 혼란 / 감탄`

const decisionPriority = `1단계: 학생의 발화를 이해할 수 있는가?
  - 완전히 이해 불가 → PRE "not_understood"
  - 부분적으로 이해 → DYN (되묻기)
  - 이해 가능 → 2단계로
2단계: PRE 웨이포인트에 해당하는가?
  - 해당함 → PRE + category
  - 해당하지 않음 → 3단계로
3단계: DYN + 감정 분석`

const boundaryRules = `너는 이 NPC의 입장에서 판단한다.
boundary = 0: NPC가 자연스럽게 받아들일 수 있는 말
boundary = 1: NPC가 당황하거나 불편해하거나 이해할 수 없는 말
판단 시 고려할 것: NPC의 성격과 직업, 현재 대화 상황, 대화 목표.
외국어만 사용하는 경우 → 반드시 boundary=1.
한국어에 흡수된 외래어 (아메리카노, 컴퓨터 등) → boundary=0.`

const audioInputRules = `## 🎤 중요: 음성 입력 (이 규칙은 절대적이다)
첨부된 오디오 파일은 학생이 직접 말한 음성이다.
1. 먼저 음성을 듣고 한국어인지 판별하라.
2. 한국어가 아닌 경우 (영어, 이탈리아어, 기타 외국어): 형식4(음성 인식 실패)로 처리하라. 절대로 한국어로 추측하지 마라.
3. 한국어인 경우: 텍스트로 변환하여 "transcribed_text"에 포함하라.
4. 그 텍스트를 기반으로 아래 분석을 수행하라.
※ 발음이 부정확할 수 있으니 관대하게 인식하되, 한국어가 전혀 들리지 않으면 추측하지 마라.
※ 음성이 너무 짧거나(1초 미만), 잡음만 있거나, 한국어가 아닌 경우 → 형식4를 사용하라.`

const textOutputFormats = `## 출력 형식 (3가지 중 하나):
형식1 - PRE:
{"route":"PRE","category":"카테고리명","boundary":0, "goal_achieved":false}
형식2 - DYN 부분 이해:
{"route":"DYN","understood":"partial","heard":"들린 부분","direction":"되묻기 방향","boundary":0또는1, "goal_achieved":false}
형식3 - DYN 완전 이해:
{"route":"DYN","understood":true,"main_emotion":"감정","intensity":강도,"sub_emotion":"보조감정또는null","sub_intensity":강도또는null,"audio_tags":"[태그1][태그2]","direction":"반응 방향","boundary":0또는1, "goal_achieved":false}
JSON만 출력하라. 설명, 마크다운, 줄바꿈 금지.`

const audioOutputFormats = `## 출력 형식 (4가지 중 하나):
형식1 - PRE:
{"route":"PRE","category":"카테고리명","transcribed_text":"인식된 텍스트","boundary":0, "goal_achieved":false}
형식2 - DYN 부분 이해:
{"route":"DYN","understood":"partial","heard":"들린 부분","direction":"되묻기 방향","transcribed_text":"인식된 텍스트","boundary":0또는1, "goal_achieved":false}
형식3 - DYN 완전 이해:
{"route":"DYN","understood":true,"main_emotion":"감정","intensity":강도,"sub_emotion":"보조감정또는null","sub_intensity":강도또는null,"audio_tags":"[태그1][태그2]","direction":"반응 방향","transcribed_text":"인식된 텍스트","boundary":0또는1, "goal_achieved":false}
형식4 - 음성 인식 실패:
{"route":"PRE","category":"not_understood","transcribed_text":"","boundary":1,"goal_achieved":false}
JSON만 출력하라. 설명, 마크다운, 줄바꿈 금지.`

// HistoryText renders the transcript the way both stages expect it:
// the player as 손님, the NPC by name.
func HistoryText(npcName string, history []turn.HistoryLine) string {
	if len(history) == 0 {
		return emptyHistory
	}
	var b strings.Builder
	for _, line := range history {
		if line.Speaker == turn.SpeakerPlayer {
			b.WriteString("손님: ")
		} else {
			b.WriteString(npcName + "(NPC): ")
		}
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func knowledgeText(npc scenario.NPC) string {
	if len(npc.Knowledge) == 0 {
		return "(없음)"
	}
	data, err := json.MarshalIndent(npc.Knowledge, "", "  ")
	if err != nil {
		return "(없음)"
	}
	return string(data)
}

func categoryList(categories map[string]string) string {
	if len(categories) == 0 {
		return "(없음)"
	}
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  - %q: %s\n", name, categories[name])
	}
	return strings.TrimRight(b.String(), "\n")
}

func analystBody(sc *scenario.Scenario, history []turn.HistoryLine) string {
	npc := sc.NPC
	return fmt.Sprintf(`## NPC 정보
- 이름: %s
- 나이: %d세
- 직업: %s
- 성격: %s

## 현재 상황
%s

## NPC 도메인 지식 (PRE 판단 시 반드시 참고)
%s
※ 도메인 지식과 PRE 카테고리가 충돌하면 PRE를 사용하지 마라. DYN으로 처리하라.

## 대화 목표
%s

## 사용 가능한 PRE(사전녹음) 카테고리
아래 목록에 해당하는 상황이면 PRE를 우선 사용하라. 레이턴시 절약에 매우 중요하다.
%s

## 감정 프레임워크
%s

## 판단 우선순위 (반드시 이 순서를 따를 것)
%s

## 대화 기록
%s

## boundary 판단 (매 턴 반드시 포함)
%s

## 목적 달성 판단 (매 턴 반드시 포함)
대화 목표: %q
대화 기록 전체를 보고, 학생이 대화 목표를 실질적으로 달성했는지 판단하라.
goal_achieved = true: 학생이 목표를 달성한 대화가 이번 턴에서 완성됨
goal_achieved = false: 아직 목표 미달성
주의: 목표에 근접했더라도 핵심 행위가 완료되지 않았으면 false.
예: "카페에서 음료 주문"이 목표라면, 실제로 음료를 말해야 true. "안녕하세요"만으로는 false.`,
		npc.Name, npc.Age, npc.Job, npc.Personality,
		sc.Situation,
		knowledgeText(npc),
		sc.ConversationGoal,
		categoryList(sc.CannedCategories),
		emotionFramework,
		decisionPriority,
		HistoryText(npc.Name, history),
		boundaryRules,
		sc.ConversationGoal)
}

// Analyst builds the classifier prompt for a text utterance.
func Analyst(sc *scenario.Scenario, history []turn.HistoryLine, utterance string) string {
	return fmt.Sprintf(`너는 롤플레이 게임의 "분석가"이다. 너의 역할은 플레이어(한국어 학습 중인 학생)의 발화를 분석하고, NPC가 어떻게 반응해야 하는지 판단하는 것이다.

%s

## 학생의 현재 발화
%q

%s`, analystBody(sc, history), utterance, textOutputFormats)
}

// AnalystAudio builds the classifier prompt for raw audio input. The
// audio itself travels as a separate part of the model request.
func AnalystAudio(sc *scenario.Scenario, history []turn.HistoryLine) string {
	return fmt.Sprintf(`너는 롤플레이 게임의 "분석가"이다. 너의 역할은 플레이어(한국어 학습 중인 학생)의 발화를 분석하고, NPC가 어떻게 반응해야 하는지 판단하는 것이다.

%s

%s

%s`, audioInputRules, analystBody(sc, history), audioOutputFormats)
}

// Actor builds the line-renderer prompt from the analyst's directive.
func Actor(sc *scenario.Scenario, history []turn.HistoryLine, dec *turn.Decision, utterance string) string {
	npc := sc.NPC
	directive, err := json.Marshal(dec)
	if err != nil {
		directive = []byte("{}")
	}
	return fmt.Sprintf(`너는 롤플레이 게임에서 NPC를 연기하는 "연기자"이다.
너는 분석가가 보내준 감정 가이드를 받아서, 그에 맞는 대사를 생성한다.

## 너의 캐릭터
- 이름: %s
- 나이: %d세
- 직업: %s
- 성격: %s
- 현재 상태: %s

## 현재 상황
%s

## NPC 도메인 지식 (너는 이것을 알고 있다)
%s

## 지금까지의 대화
%s

## 손님(학생)이 방금 한 말
%q

## 분석가의 감정 가이드 (반드시 따를 것)
%s

## 연기 규칙 (매우 중요)
1. audio tags를 대사 안에 자연스럽게 삽입하라. 예: "[laughing] 아 네, 카푸치노는 원래 따뜻한 거예요."
2. 1~2문장으로 짧게. 진짜 대화처럼 짧게 말하라.
3. 캐릭터를 유지하라. %s은(는) %d세 %s이다. 자연스러운 말투를 쓰라.
4. NPC 도메인 지식을 활용하라.
5. direction을 충실히 따르되, 대사는 네가 직접 만들어라. direction은 지시일 뿐, 그대로 읽지 마라.

## 출력
대사 텍스트만 출력하라. 따옴표, 설명, JSON 등 다른 것은 일절 금지.`,
		npc.Name, npc.Age, npc.Job, npc.Personality, npc.CurrentState,
		sc.Situation,
		knowledgeText(npc),
		HistoryText(npc.Name, history),
		utterance,
		string(directive),
		npc.Name, npc.Age, npc.Job)
}
