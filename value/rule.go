/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package value

// RuleKind 阻断规则类型
type RuleKind int

const (
	// RuleUnrecognized any rule string other than eq and neq
	RuleUnrecognized RuleKind = iota
	// RuleEqual blocks when the value equals the compare value
	RuleEqual
	// RuleNotEqual blocks when the value differs from the compare value
	RuleNotEqual
)

// BlockIfRule is a parsed block-if rule. Raw keeps the configured text for
// warnings about unrecognized rules.
type BlockIfRule struct {
	Kind RuleKind
	Raw  string
}

// ParseBlockIfRule never fails; unknown text yields RuleUnrecognized.
func ParseBlockIfRule(raw string) BlockIfRule {
	switch raw {
	case "eq":
		return BlockIfRule{Kind: RuleEqual, Raw: raw}
	case "neq":
		return BlockIfRule{Kind: RuleNotEqual, Raw: raw}
	default:
		return BlockIfRule{Kind: RuleUnrecognized, Raw: raw}
	}
}

// Matches reports whether the rule blocks for the given comparison outcome.
// Unrecognized rules never match.
func (r BlockIfRule) Matches(equal bool) bool {
	switch r.Kind {
	case RuleEqual:
		return equal
	case RuleNotEqual:
		return !equal
	default:
		return false
	}
}

func (r BlockIfRule) String() string {
	return r.Raw
}
