package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Folder>
      <Placemark>
        <name>Tracker1</name>
        <TimeStamp><when>2023-06-01T12:00:00Z</when></TimeStamp>
        <Point><coordinates>-121.5,45.2,1500</coordinates></Point>
      </Placemark>
    </Folder>
    <Folder>
      <Placemark>
        <name>Tracker2</name>
        <TimeStamp><when>2023-06-01T12:05:00Z</when></TimeStamp>
        <Point><coordinates>-122.0,46.0,200.5</coordinates></Point>
      </Placemark>
    </Folder>
  </Document>
</kml>`

func TestSplitFeed(t *testing.T) {
	t.Run("well-formed document", func(t *testing.T) {
		folders, err := SplitFeed([]byte(sampleKML))
		require.NoError(t, err)
		assert.Len(t, folders, 2)
	})

	t.Run("no document container", func(t *testing.T) {
		content := `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2"></kml>`
		folders, err := SplitFeed([]byte(content))
		require.NoError(t, err)
		assert.Empty(t, folders)
	})

	t.Run("empty document", func(t *testing.T) {
		content := `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2"><Document></Document></kml>`
		folders, err := SplitFeed([]byte(content))
		require.NoError(t, err)
		assert.Empty(t, folders)
	})

	t.Run("malformed xml", func(t *testing.T) {
		_, err := SplitFeed([]byte("<kml><Document>"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse kml")
	})

	t.Run("wrong namespace ignored", func(t *testing.T) {
		content := `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://example.com/not-kml"><Document><Folder/></Document></kml>`
		folders, err := SplitFeed([]byte(content))
		require.NoError(t, err)
		assert.Empty(t, folders)
	})
}

func TestFolder_Entry(t *testing.T) {
	t.Run("complete placemark", func(t *testing.T) {
		folders, err := SplitFeed([]byte(sampleKML))
		require.NoError(t, err)
		require.Len(t, folders, 2)

		entry, err := folders[0].Entry()
		require.NoError(t, err)
		assert.Equal(t, "Tracker1", entry.Name)
		assert.Equal(t, "-121.5,45.2,1500", entry.Coordinates)
		assert.Equal(t, "2023-06-01T12:00:00Z", entry.When)

		entry, err = folders[1].Entry()
		require.NoError(t, err)
		assert.Equal(t, "Tracker2", entry.Name)
	})

	t.Run("missing placemark", func(t *testing.T) {
		content := `<kml xmlns="http://www.opengis.net/kml/2.2"><Document><Folder/></Document></kml>`
		folders, err := SplitFeed([]byte(content))
		require.NoError(t, err)
		require.Len(t, folders, 1)

		_, err = folders[0].Entry()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no placemark")
	})

	t.Run("missing point", func(t *testing.T) {
		content := `<kml xmlns="http://www.opengis.net/kml/2.2"><Document><Folder>
<Placemark><name>X</name><TimeStamp><when>2023-01-01T00:00:00Z</when></TimeStamp></Placemark>
</Folder></Document></kml>`
		folders, err := SplitFeed([]byte(content))
		require.NoError(t, err)
		require.Len(t, folders, 1)

		_, err = folders[0].Entry()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no point")
	})

	t.Run("missing timestamp", func(t *testing.T) {
		content := `<kml xmlns="http://www.opengis.net/kml/2.2"><Document><Folder>
<Placemark><name>X</name><Point><coordinates>1,2,3</coordinates></Point></Placemark>
</Folder></Document></kml>`
		folders, err := SplitFeed([]byte(content))
		require.NoError(t, err)
		require.Len(t, folders, 1)

		_, err = folders[0].Entry()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no timestamp")
	})
}
