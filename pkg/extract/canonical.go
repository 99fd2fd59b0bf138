package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bionexus/backend/pkg/common"
	"github.com/bionexus/backend/pkg/logger"
)

const (
	defaultNCBIBaseURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultUniProtBaseURL = "https://rest.uniprot.org"

	lookupTimeout = 5 * time.Second
)

// Protein-style names: short mixed-case tokens like SodA, TP53, RecA.
var proteinNamePattern = regexp.MustCompile(`^[A-Za-z]{2,6}\d[A-Za-z0-9]*$|^[A-Z][a-z]{2}[A-Z][A-Za-z0-9]*$`)

// Canonicalizer resolves entity names to stable external identifiers.
// Every lookup is best-effort with a short timeout; failures leave the
// canonical ID unset and are never surfaced as errors.
type Canonicalizer struct {
	httpClient     *http.Client
	ncbiBaseURL    string
	uniprotBaseURL string
}

// CanonicalizerParams configures a Canonicalizer. Empty base URLs fall
// back to the public NCBI and UniProt endpoints.
type CanonicalizerParams struct {
	NCBIBaseURL    string
	UniProtBaseURL string
}

// NewCanonicalizer creates a Canonicalizer.
func NewCanonicalizer(params CanonicalizerParams) *Canonicalizer {
	if params.NCBIBaseURL == "" {
		params.NCBIBaseURL = defaultNCBIBaseURL
	}
	if params.UniProtBaseURL == "" {
		params.UniProtBaseURL = defaultUniProtBaseURL
	}
	return &Canonicalizer{
		httpClient:     &http.Client{Timeout: lookupTimeout},
		ncbiBaseURL:    strings.TrimRight(params.NCBIBaseURL, "/"),
		uniprotBaseURL: strings.TrimRight(params.UniProtBaseURL, "/"),
	}
}

// Canonicalize annotates mentions with external identifiers in place.
// Organisms are resolved against the NCBI taxonomy, protein-style
// endpoints against UniProt.
func (c *Canonicalizer) Canonicalize(ctx context.Context, mentions []common.Mention) []common.Mention {
	for i := range mentions {
		switch {
		case mentions[i].Type == common.EntityOrganism:
			if id := c.lookupTaxon(ctx, mentions[i].Text); id != "" {
				mentions[i].CanonicalID = id
			}
		case mentions[i].Type == common.EntityEndpoint && isProteinName(mentions[i].Text):
			if id := c.lookupProtein(ctx, mentions[i].Text); id != "" {
				mentions[i].CanonicalID = id
			}
		}
	}
	return mentions
}

func isProteinName(name string) bool {
	if strings.Contains(strings.ToLower(name), "protein") {
		return true
	}
	return proteinNamePattern.MatchString(strings.TrimSpace(name))
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (c *Canonicalizer) lookupTaxon(ctx context.Context, name string) string {
	endpoint := fmt.Sprintf(
		"%s/esearch.fcgi?db=taxonomy&retmode=json&term=%s",
		c.ncbiBaseURL, url.QueryEscape(name),
	)

	var parsed esearchResponse
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		logger.Debug("[Extract] Taxonomy lookup failed", "name", name, "err", err)
		return ""
	}
	if len(parsed.ESearchResult.IDList) == 0 {
		return ""
	}
	return "NCBITaxon:" + parsed.ESearchResult.IDList[0]
}

type uniprotResponse struct {
	Results []struct {
		PrimaryAccession string `json:"primaryAccession"`
	} `json:"results"`
}

func (c *Canonicalizer) lookupProtein(ctx context.Context, name string) string {
	endpoint := fmt.Sprintf(
		"%s/uniprotkb/search?format=json&size=1&query=%s",
		c.uniprotBaseURL, url.QueryEscape(name),
	)

	var parsed uniprotResponse
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		logger.Debug("[Extract] Protein lookup failed", "name", name, "err", err)
		return ""
	}
	if len(parsed.Results) == 0 || parsed.Results[0].PrimaryAccession == "" {
		return ""
	}
	return "UniProt:" + parsed.Results[0].PrimaryAccession
}

func (c *Canonicalizer) getJSON(ctx context.Context, endpoint string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
