// Package config loads the imageindex configuration with viper.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file and
// IMAGEINDEX_* environment variables, where nested keys use underscores
// (index.api_key becomes IMAGEINDEX_INDEX_API_KEY). Endpoint lists can only be set
// in the file.
//
// Example file:
//
//	temp_dir: /var/tmp/imageindex
//	lines_per_chunk: 100
//	vision:
//	  endpoints:
//	    - base_url: https://eastus.api.cognitive.microsoft.com/
//	      api_key: "..."
//	embedding:
//	  endpoints:
//	    - base_url: https://my-openai.openai.azure.com/
//	      api_key: "..."
//	  model: text-embedding-ada-002
//	index:
//	  backend: rest
//	  endpoint: https://my-search.search.windows.net/
//	  name: images
package config
