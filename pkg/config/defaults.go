package config

// Defaults returns the built-in Policies document Load starts from
// before an environment overlay, environment variables, or overrides
// are applied. Every field is set to a value that satisfies its own
// validate tag. The prompt registry paths point under config/prompts/,
// which this repository does not ship.
func Defaults() *Policies {
	tieBreakMinStrength := 0.5

	return &Policies{
		PolicyVersion: "v1",
		LevelThresholds: LevelThresholds{
			Level0: LevelThreshold{MinInstitutions: 1, MinSrcCount: 1, WeightFormula: "institutions"},
			Level1: LevelThreshold{MinInstitutions: 2, MinSrcCount: 2, WeightFormula: "institutions"},
			Level2: LevelThreshold{MinInstitutions: 2, MinSrcCount: 3, WeightFormula: "institutions"},
			Level3: LevelThreshold{MinInstitutions: 1, MinSrcCount: 2, WeightFormula: "institutions"},
		},
		FrequencyFiltering: FrequencyFilteringPolicy{
			UnknownInstitutionPlaceholder: "unknown",
			NearDuplicate: NearDuplicateDedupPolicy{
				Enabled:          true,
				PrefixDelimiters: []string{"-", ":", "/"},
				StripNumericSufx: true,
				MinPrefixLength:  6,
			},
		},
		LabelPolicy: LabelPolicy{
			MinimalCanonicalForm: MinimalCanonicalForm{
				Case:               "lower",
				RemovePunctuation:  true,
				FoldDiacritics:     true,
				CollapseWhitespace: true,
				MinLength:          2,
				MaxLength:          80,
			},
			TokenMinimalityPref:      "prefer_shorter",
			PunctuationHandling:      "strip",
			IncludeAmbiguousAcronyms: false,
			ParentSimilarityCutoff:   0.3,
		},
		SingleToken: SingleTokenVerificationPolicy{
			MaxTokensPerLevel:        map[int]int{0: 4, 1: 4, 2: 3, 3: 3},
			ForbiddenPunctuation:     []string{";", "|", "\\"},
			Allowlist:                nil,
			VenueNames:               nil,
			VenueNamesForbidden:      true,
			HyphenatedCompoundsAllow: true,
			PreferRuleOverLLM:        false,
		},
		InstitutionPolicy: InstitutionPolicy{
			CampusVsSystem:       "keep_campus",
			JointCenterHandling:  "keep_both",
			CrossListingStrategy: "keep_both",
			CanonicalMappings:    map[string]string{},
		},
		LLM: LLMDeterminismSettings{
			Temperature:          0,
			NucleusTopP:          1,
			JSONMode:             true,
			RetryAttempts:        3,
			RetryBackoffSeconds:  1,
			RandomSeed:           12345,
			TokenBudget:          2048,
			RequestTimeoutSecond: 30,
			DefaultProfile:       "default",
			Profiles: map[string]ProviderProfileSettings{
				"default": {Provider: "anthropic", Model: "claude-3-5-haiku-latest"},
			},
			Registry: RegistrySettings{
				File:          "config/prompts/registry.yaml",
				TemplatesRoot: "config/prompts/templates",
				SchemaRoot:    "config/prompts/schemas",
				HotReload:     false,
			},
			Repair: RepairSettings{QuarantineAfterAttempts: 2},
			Observability: ObservabilitySettings{
				MetricsEnabled:      true,
				AuditLogging:        true,
				PerformanceTracking: true,
			},
			CostTracking: CostTrackingSettings{TokenBudgetPerHour: 0, Enabled: false},
		},
		Deduplication: DeduplicationPolicy{
			Thresholds:  DeduplicationThresholds{L0L1: 0.92, L2L3: 0.85},
			MergePolicy: "keep_most_supported",
			Blocking: BlockingPolicy{
				PrefixLength:         4,
				PhoneticBucketing:    true,
				PhoneticProbeMinimum: 0.4,
			},
			Weights: SimilarityWeights{
				JaroWinkler:      0.5,
				TokenJaccard:     0.3,
				AbbreviationHint: 0.1,
				AffixHint:        0.1,
			},
		},
		Disambiguation: DisambiguationPolicy{
			DivergenceThreshold: 0.6,
			ConfidenceThreshold: 0.7,
			MinSeparableSenses:  2,
		},
		Hierarchy: HierarchyPolicy{
			OrphanStrategy:    "attach_placeholder",
			PlaceholderPrefix: "placeholder::",
		},
		RawExtraction: RawExtractionPolicy{
			SegmentOnHeaders:            true,
			SegmentOnLists:              true,
			SegmentOnTables:             true,
			PreserveListStructure:       true,
			MinChars:                    20,
			MaxChars:                    4000,
			TargetLanguage:              "en",
			LanguageConfidenceThreshold: 0.6,
			RequireLanguageConfidence:   false,
			IntraPageDedupEnabled:       true,
			SimilarityThreshold:         0.9,
			SimilarityMethod:            "jaccard",
			RemoveBoilerplate:           true,
			BoilerplatePatterns:         []string{`(?i)^cookie policy`, `(?i)^all rights reserved`},
			DetectSections:              true,
			SectionHeaderPatterns:       []string{`(?i)^#{1,6}\s`},
			PreserveDocumentOrder:       true,
		},
		Level0Excel: LevelZeroExcelPolicy{
			ExcelFile:        "data/level0_seed.xlsx",
			SheetsToProcess:  nil,
			TopNInstitutions: 50,
			RandomSeed:       12345,
		},
		Validation: ValidationPolicy{
			Rules: RuleValidationSettings{
				ForbiddenPatterns:       []string{`(?i)\btbd\b`, `(?i)\bn/a\b`},
				RequiredVocabularies:    map[int][]string{},
				VenuePatterns:           []string{`(?i)conference`, `(?i)symposium`, `(?i)workshop`},
				StructuralChecksEnabled: true,
				VenueDetectionHard:      true,
			},
			Web: WebValidationSettings{
				AuthoritativeDomains:  []string{".edu"},
				SnippetMaxLength:      400,
				MinSnippetMatches:     1,
				EvidenceTimeoutSecond: 10,
			},
			LLM: LLMValidationSettings{
				EntailmentEnabled:   true,
				MaxEvidenceTokens:   512,
				ConfidenceThreshold: 0.6,
			},
			Aggregation: ValidationAggregationSettings{
				RuleWeight:            0.3,
				WebWeight:             0.4,
				LLMWeight:             0.3,
				HardRuleFailureBlocks: true,
				TieBreakConservative:  true,
				TieBreakMinStrength:   &tieBreakMinStrength,
			},
			Evidence: EvidenceStorageSettings{
				MaxSnippetsPerConcept: 5,
				StoreEvidenceURLs:     true,
				EvidenceSamplingRate:  0.1,
			},
			Threshold: 0.6,
		},
	}
}
