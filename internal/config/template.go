package config

// Template is written by `plmr config init` as a starting point.
const Template = `version: 1

output:
  output_directory: ~/Music/playlist-mirror
  format: mp3        # mp3, flac or m4a
  quality: high
  bitrate: 192
  concurrency: 3
  retry_attempts: 3
  timeout: 300

audio:
  trim_silence: false
  normalize: false
  min_duration: 30
  max_duration: 960

match:
  score_threshold: 70
  prefer_official: true
  exclude_live: true
  exclude_covers: true
  duration_tolerance: 15

lyrics:
  enabled: true
  download_separate_files: true
  embed_in_audio: true
  format: both       # txt, lrc or both
  primary_source: lrclib
  fallback_sources: [genius, ovh]

sync:
  backup_tracklist: true
  detect_moved_tracks: true

naming:
  track_format: "{track} - {artist} - {title}"
  max_filename_length: 200

# Credentials come from the environment:
#   SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET
#   GENIUS_ACCESS_TOKEN (optional)
`
