package domain

const (
	CollectionChannelCatalogTrack    = "channel_catalog_track"
	CollectionChannelStrategy        = "channel_strategy"
	CollectionChannelPlaybackSession = "channel_playback_session"
)
