package config

// LevelThreshold gates S2 frequency filtering for a single hierarchy level.
type LevelThreshold struct {
	MinInstitutions int    `yaml:"min_institutions" validate:"gte=0"`
	MinSrcCount     int    `yaml:"min_src_count" validate:"gte=0"`
	WeightFormula   string `yaml:"weight_formula"`
}

// LevelThresholds collects the threshold policy for every hierarchy level.
type LevelThresholds struct {
	Level0 LevelThreshold `yaml:"level_0" validate:"required"`
	Level1 LevelThreshold `yaml:"level_1" validate:"required"`
	Level2 LevelThreshold `yaml:"level_2" validate:"required"`
	Level3 LevelThreshold `yaml:"level_3" validate:"required"`
}

// ForLevel returns the threshold configured for the given hierarchy level.
func (t LevelThresholds) ForLevel(level int) (LevelThreshold, bool) {
	switch level {
	case 0:
		return t.Level0, true
	case 1:
		return t.Level1, true
	case 2:
		return t.Level2, true
	case 3:
		return t.Level3, true
	default:
		return LevelThreshold{}, false
	}
}

// NearDuplicateDedupPolicy controls S2 record fingerprint collapsing.
type NearDuplicateDedupPolicy struct {
	Enabled           bool     `yaml:"enabled"`
	PrefixDelimiters  []string `yaml:"prefix_delimiters"`
	StripNumericSufx  bool     `yaml:"strip_numeric_suffix"`
	MinPrefixLength   int      `yaml:"min_prefix_length" validate:"gte=1"`
}

// FrequencyFilteringPolicy configures S2 aggregation.
type FrequencyFilteringPolicy struct {
	UnknownInstitutionPlaceholder string                   `yaml:"unknown_institution_placeholder" validate:"min=1"`
	NearDuplicate                 NearDuplicateDedupPolicy `yaml:"near_duplicate"`
}

// MinimalCanonicalForm describes canonical-label normalization rules.
type MinimalCanonicalForm struct {
	Case               string   `yaml:"case"`
	RemovePunctuation  bool     `yaml:"remove_punctuation"`
	FoldDiacritics     bool     `yaml:"fold_diacritics"`
	CollapseWhitespace bool     `yaml:"collapse_whitespace"`
	MinLength          int      `yaml:"min_length" validate:"gte=1"`
	MaxLength          int      `yaml:"max_length" validate:"gte=2"`
	BoilerplatePattern []string `yaml:"boilerplate_patterns"`
}

// LabelPolicy groups policies governing candidate label generation.
type LabelPolicy struct {
	MinimalCanonicalForm     MinimalCanonicalForm `yaml:"minimal_canonical_form"`
	TokenMinimalityPref      string               `yaml:"token_minimality_preference"`
	PunctuationHandling      string               `yaml:"punctuation_handling"`
	IncludeAmbiguousAcronyms bool                 `yaml:"include_ambiguous_acronyms"`
	ParentSimilarityCutoff   float64              `yaml:"parent_similarity_cutoff" validate:"gte=0,lte=1"`
}

// SingleTokenVerificationPolicy configures S3 rule-based checks.
type SingleTokenVerificationPolicy struct {
	MaxTokensPerLevel        map[int]int `yaml:"max_tokens_per_level"`
	ForbiddenPunctuation     []string    `yaml:"forbidden_punctuation"`
	Allowlist                []string    `yaml:"allowlist"`
	VenueNames               []string    `yaml:"venue_names"`
	VenueNamesForbidden      bool        `yaml:"venue_names_forbidden"`
	HyphenatedCompoundsAllow bool        `yaml:"hyphenated_compounds_allowed"`
	PreferRuleOverLLM        bool        `yaml:"prefer_rule_over_llm"`
}

// RuleValidationSettings configures the deterministic validation rule set.
type RuleValidationSettings struct {
	ForbiddenPatterns        []string      `yaml:"forbidden_patterns"`
	RequiredVocabularies     map[int][]string `yaml:"required_vocabularies"`
	VenuePatterns            []string      `yaml:"venue_patterns"`
	StructuralChecksEnabled  bool          `yaml:"structural_checks_enabled"`
	VenueDetectionHard       bool          `yaml:"venue_detection_hard"`
}

// WebValidationSettings configures evidence-based validation.
type WebValidationSettings struct {
	AuthoritativeDomains  []string `yaml:"authoritative_domains"`
	SnippetMaxLength      int      `yaml:"snippet_max_length" validate:"gte=40,lte=2000"`
	MinSnippetMatches     int      `yaml:"min_snippet_matches" validate:"gte=0"`
	EvidenceTimeoutSecond float64  `yaml:"evidence_timeout_seconds" validate:"gte=0.1"`
}

// LLMValidationSettings configures entailment validation.
type LLMValidationSettings struct {
	EntailmentEnabled    bool    `yaml:"entailment_enabled"`
	MaxEvidenceTokens    int     `yaml:"max_evidence_tokens" validate:"gte=128"`
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" validate:"gte=0,lte=1"`
}

// ValidationAggregationSettings configures the weighted validation aggregate.
type ValidationAggregationSettings struct {
	RuleWeight             float64  `yaml:"rule_weight" validate:"gte=0"`
	WebWeight              float64  `yaml:"web_weight" validate:"gte=0"`
	LLMWeight              float64  `yaml:"llm_weight" validate:"gte=0"`
	HardRuleFailureBlocks  bool     `yaml:"hard_rule_failure_blocks"`
	TieBreakConservative   bool     `yaml:"tie_break_conservative"`
	TieBreakMinStrength    *float64 `yaml:"tie_break_min_strength"`
}

// EvidenceStorageSettings controls evidence sampling and retention.
type EvidenceStorageSettings struct {
	MaxSnippetsPerConcept int     `yaml:"max_snippets_per_concept" validate:"gte=0"`
	StoreEvidenceURLs     bool    `yaml:"store_evidence_urls"`
	EvidenceSamplingRate  float64 `yaml:"evidence_sampling_rate" validate:"gte=0,lte=1"`
}

// ValidationPolicy aggregates the three validation signal sources.
type ValidationPolicy struct {
	Rules       RuleValidationSettings        `yaml:"rules"`
	Web         WebValidationSettings         `yaml:"web"`
	LLM         LLMValidationSettings         `yaml:"llm"`
	Aggregation ValidationAggregationSettings `yaml:"aggregation"`
	Evidence    EvidenceStorageSettings       `yaml:"evidence"`
	// Threshold is the minimum composite strength a concept's Aggregator.Run
	// call must clear to pass.
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
}

// InstitutionPolicy governs reconciliation of institutional identities in S2.
type InstitutionPolicy struct {
	CampusVsSystem        string            `yaml:"campus_vs_system"`
	JointCenterHandling    string            `yaml:"joint_center_handling"`
	CrossListingStrategy   string            `yaml:"cross_listing_strategy"`
	CanonicalMappings      map[string]string `yaml:"canonical_mappings"`
}

// DeduplicationThresholds sets the similarity threshold per level band.
type DeduplicationThresholds struct {
	L0L1 float64 `yaml:"l0_l1" validate:"gte=0,lte=1"`
	L2L3 float64 `yaml:"l2_l3" validate:"gte=0,lte=1"`
}

// BlockingPolicy configures the composite blocking strategy that limits
// pairwise comparisons during deduplication.
type BlockingPolicy struct {
	PrefixLength        int     `yaml:"prefix_length" validate:"gte=1"`
	PhoneticBucketing    bool    `yaml:"phonetic_bucketing"`
	PhoneticProbeMinimum float64 `yaml:"phonetic_probe_minimum" validate:"gte=0,lte=1"`
}

// SimilarityWeights weights the signals the composite similarity scorer
// combines before parent-set compatibility gating is applied.
type SimilarityWeights struct {
	JaroWinkler      float64 `yaml:"jaro_winkler" validate:"gte=0"`
	TokenJaccard     float64 `yaml:"token_jaccard" validate:"gte=0"`
	AbbreviationHint float64 `yaml:"abbreviation_hint" validate:"gte=0"`
	AffixHint        float64 `yaml:"affix_hint" validate:"gte=0"`
}

// DeduplicationPolicy governs blocking, scoring, and merge behavior for
// similar concepts.
type DeduplicationPolicy struct {
	Thresholds  DeduplicationThresholds `yaml:"thresholds"`
	MergePolicy string                  `yaml:"merge_policy"`
	Blocking    BlockingPolicy          `yaml:"blocking"`
	Weights     SimilarityWeights       `yaml:"weights"`
}

// DisambiguationPolicy governs when a shared label with divergent parent
// lineages is split into distinct senses.
type DisambiguationPolicy struct {
	DivergenceThreshold  float64 `yaml:"divergence_threshold" validate:"gte=0,lte=1"`
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" validate:"gte=0,lte=1"`
	MinSeparableSenses   int     `yaml:"min_separable_senses" validate:"gte=2"`
}

// HierarchyPolicy governs DAG assembly of accepted concepts.
type HierarchyPolicy struct {
	OrphanStrategy   string `yaml:"orphan_strategy" validate:"oneof=quarantine attach_placeholder"`
	PlaceholderPrefix string `yaml:"placeholder_prefix" validate:"min=1"`
}

// RawExtractionPolicy configures S0 segmentation of mined snapshots.
type RawExtractionPolicy struct {
	SegmentOnHeaders             bool     `yaml:"segment_on_headers"`
	SegmentOnLists                bool     `yaml:"segment_on_lists"`
	SegmentOnTables                bool     `yaml:"segment_on_tables"`
	PreserveListStructure          bool     `yaml:"preserve_list_structure"`
	MinChars                        int      `yaml:"min_chars" validate:"gte=0"`
	MaxChars                        int      `yaml:"max_chars" validate:"gte=1"`
	TargetLanguage                  string   `yaml:"target_language" validate:"min=1"`
	LanguageConfidenceThreshold     float64  `yaml:"language_confidence_threshold" validate:"gte=0,lte=1"`
	RequireLanguageConfidence       bool     `yaml:"require_language_confidence"`
	IntraPageDedupEnabled           bool     `yaml:"intra_page_dedup_enabled"`
	SimilarityThreshold             float64  `yaml:"similarity_threshold" validate:"gte=0,lte=1"`
	SimilarityMethod                string   `yaml:"similarity_method" validate:"min=1"`
	RemoveBoilerplate                bool     `yaml:"remove_boilerplate"`
	BoilerplatePatterns              []string `yaml:"boilerplate_patterns"`
	DetectSections                    bool     `yaml:"detect_sections"`
	SectionHeaderPatterns             []string `yaml:"section_header_patterns"`
	PreserveDocumentOrder              bool     `yaml:"preserve_document_order"`
}

// LevelZeroExcelPolicy configures the level-0 spreadsheet ingestion handler.
type LevelZeroExcelPolicy struct {
	ExcelFile          string   `yaml:"excel_file" validate:"required"`
	SheetsToProcess    []string `yaml:"sheets_to_process"`
	TopNInstitutions   int      `yaml:"top_n_institutions" validate:"gte=1"`
	RandomSeed         int      `yaml:"random_seed"`
}

// ProviderProfileSettings names the provider/model pair for an LLM profile.
type ProviderProfileSettings struct {
	Provider string `yaml:"provider" validate:"required"`
	Model    string `yaml:"model" validate:"required"`
}

// RegistrySettings points at the prompt registry and schema directories.
type RegistrySettings struct {
	File          string `yaml:"file" validate:"required"`
	TemplatesRoot string `yaml:"templates_root" validate:"required"`
	SchemaRoot    string `yaml:"schema_root" validate:"required"`
	HotReload     bool   `yaml:"hot_reload"`
}

// RepairSettings configures the JSON repair/quarantine loop.
type RepairSettings struct {
	QuarantineAfterAttempts int `yaml:"quarantine_after_attempts" validate:"gte=1"`
}

// ObservabilitySettings toggles metrics and audit logging for LLM calls.
type ObservabilitySettings struct {
	MetricsEnabled      bool `yaml:"metrics_enabled"`
	AuditLogging        bool `yaml:"audit_logging"`
	PerformanceTracking bool `yaml:"performance_tracking"`
}

// CostTrackingSettings enables per-hour token budget accounting.
type CostTrackingSettings struct {
	TokenBudgetPerHour int  `yaml:"token_budget_per_hour" validate:"gte=0"`
	Enabled            bool `yaml:"enabled"`
}

// LLMDeterminismSettings configures deterministic, retryable LLM calls.
type LLMDeterminismSettings struct {
	Temperature          float64                            `yaml:"temperature" validate:"gte=0"`
	NucleusTopP          float64                            `yaml:"nucleus_top_p" validate:"gte=0,lte=1"`
	JSONMode             bool                               `yaml:"json_mode"`
	RetryAttempts        int                                `yaml:"retry_attempts" validate:"gte=0"`
	RetryBackoffSeconds  float64                            `yaml:"retry_backoff_seconds" validate:"gte=0"`
	RandomSeed           int                                `yaml:"random_seed"`
	TokenBudget          int                                `yaml:"token_budget" validate:"gte=128"`
	RequestTimeoutSecond float64                            `yaml:"request_timeout_seconds" validate:"gte=0.1"`
	DefaultProfile       string                             `yaml:"default_profile" validate:"required"`
	Profiles             map[string]ProviderProfileSettings `yaml:"profiles"`
	Registry             RegistrySettings                   `yaml:"registry"`
	Repair               RepairSettings                     `yaml:"repair"`
	Observability        ObservabilitySettings              `yaml:"observability"`
	CostTracking         CostTrackingSettings               `yaml:"cost_tracking"`
}

// Policies is the root declarative policy document.
type Policies struct {
	PolicyVersion      string                        `yaml:"policy_version" validate:"required"`
	LevelThresholds    LevelThresholds               `yaml:"level_thresholds" validate:"required"`
	FrequencyFiltering FrequencyFilteringPolicy      `yaml:"frequency_filtering"`
	LabelPolicy        LabelPolicy                   `yaml:"label_policy"`
	SingleToken        SingleTokenVerificationPolicy `yaml:"single_token"`
	InstitutionPolicy  InstitutionPolicy             `yaml:"institution_policy"`
	LLM                LLMDeterminismSettings        `yaml:"llm"`
	Deduplication      DeduplicationPolicy           `yaml:"deduplication"`
	Disambiguation     DisambiguationPolicy          `yaml:"disambiguation"`
	Hierarchy          HierarchyPolicy               `yaml:"hierarchy"`
	RawExtraction      RawExtractionPolicy           `yaml:"raw_extraction"`
	Level0Excel        LevelZeroExcelPolicy          `yaml:"level0_excel"`
	Validation         ValidationPolicy              `yaml:"validation"`
}
