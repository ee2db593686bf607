package birdweather

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GraphQL wire types.

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// flexID tolerates the API serving ids as either JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type speciesRef struct {
	CommonName     string `json:"commonName"`
	ScientificName string `json:"scientificName"`
}

type detectionsResponse struct {
	Station struct {
		Detections struct {
			PageInfo pageInfo `json:"pageInfo"`
			Nodes    []struct {
				Timestamp   string     `json:"timestamp"`
				SpeciesID   flexID     `json:"speciesId"`
				Species     speciesRef `json:"species"`
				Confidence  float64    `json:"confidence"`
				Probability float64    `json:"probability"`
				Score       float64    `json:"score"`
				Certainty   string     `json:"certainty"`
			} `json:"nodes"`
		} `json:"detections"`
	} `json:"station"`
}

type environmentResponse struct {
	Station struct {
		Sensors struct {
			EnvironmentHistory struct {
				PageInfo pageInfo `json:"pageInfo"`
				Nodes    []struct {
					Timestamp          string  `json:"timestamp"`
					Temperature        float64 `json:"temperature"`
					Humidity           float64 `json:"humidity"`
					BarometricPressure float64 `json:"barometricPressure"`
					SoundPressureLevel float64 `json:"soundPressureLevel"`
					AQI                float64 `json:"aqi"`
				} `json:"nodes"`
			} `json:"environmentHistory"`
		} `json:"sensors"`
	} `json:"station"`
}

type speciesResponse struct {
	AllSpecies []struct {
		ID               flexID `json:"id"`
		CommonName       string `json:"commonName"`
		ScientificName   string `json:"scientificName"`
		ImageURL         string `json:"imageUrl"`
		ThumbnailURL     string `json:"thumbnailUrl"`
		Color            string `json:"color"`
		EBirdURL         string `json:"ebirdUrl"`
		WikipediaSummary string `json:"wikipediaSummary"`
	} `json:"allSpecies"`
}

type probabilitiesResponse struct {
	Station struct {
		Probabilities []struct {
			SpeciesID flexID     `json:"speciesId"`
			Species   speciesRef `json:"species"`
			Weeks     []float64  `json:"weeks"`
		} `json:"probabilities"`
	} `json:"station"`
}

// Overview is the station summary returned by StationOverview.
type Overview struct {
	Name                string `json:"name"`
	Location            string `json:"location"`
	Timezone            string `json:"timezone"`
	EarliestDetectionAt string `json:"earliestDetectionAt"`
	LatestDetectionAt   string `json:"latestDetectionAt"`
	Counts              struct {
		Detections int `json:"detections"`
		Species    int `json:"species"`
	} `json:"counts"`
}

type overviewResponse struct {
	Station Overview `json:"station"`
}

// GraphQL operations, mirroring the station schema.

const detectionsQuery = `
query Detections($id: ID!, $first: Int, $after: String) {
  station(id: $id) {
    detections(first: $first, after: $after) {
      pageInfo { hasNextPage endCursor }
      nodes {
        timestamp
        speciesId
        species { commonName scientificName }
        confidence
        probability
        score
        certainty
      }
    }
  }
}`

const environmentQuery = `
query EnvHistory($id: ID!, $first: Int, $after: String, $period: InputDuration) {
  station(id: $id) {
    sensors {
      environmentHistory(first: $first, after: $after, period: $period) {
        pageInfo { hasNextPage endCursor }
        nodes {
          timestamp
          temperature
          humidity
          barometricPressure
          soundPressureLevel
          aqi
        }
      }
    }
  }
}`

const speciesQuery = `
query Species($ids: [ID!]) {
  allSpecies(ids: $ids) {
    id
    commonName
    scientificName
    imageUrl
    thumbnailUrl
    color
    ebirdUrl
    wikipediaSummary
  }
}`

const probabilitiesQuery = `
query Probabilities($id: ID!) {
  station(id: $id) {
    probabilities {
      speciesId
      species { commonName }
      weeks
    }
  }
}`

const overviewQuery = `
query StationOverview($id: ID!) {
  station(id: $id) {
    name
    location
    timezone
    earliestDetectionAt
    latestDetectionAt
    counts { detections species }
  }
}`
