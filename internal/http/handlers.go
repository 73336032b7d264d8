package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/logging"
)

// bind decodes the request into v.
func (s *Server) bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		logging.FromContext(c.Request().Context()).Warn(c.Request().Context(),
			"invalid request", zap.String("path", c.Path()), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// open resolves the folder root of a request.
func (s *Server) open(c echo.Context, folderPath string) (folder.Root, error) {
	root, err := s.folders.OpenRoot(c.Request().Context(), folderPath)
	if err != nil {
		return folder.Root{}, folderError(err)
	}
	return root, nil
}

// handleAnalyze profiles a folder.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req FolderRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	analysis, err := s.folders.Analyze(c.Request().Context(), root)
	if err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, AnalyzeResponse{FolderPath: root.Path(), Analysis: analysis})
}

// handleTree returns the folder tree.
func (s *Server) handleTree(c echo.Context) error {
	var req FolderRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	res, err := s.folders.Tree(c.Request().Context(), root)
	if err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// handleFileContent returns one file's content.
func (s *Server) handleFileContent(c echo.Context) error {
	var req FileRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	content, err := s.folders.FileContent(c.Request().Context(), root, req.FilePath)
	if err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, content)
}

// handleUpdateFile replaces one file's content.
func (s *Server) handleUpdateFile(c echo.Context) error {
	var req UpdateFileRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Content == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	modified, err := s.folders.UpdateFileContent(c.Request().Context(), root, req.FilePath, *req.Content)
	if err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, UpdateFileResponse{
		Success:    true,
		Message:    "File updated successfully",
		ModifiedAt: modified,
	})
}

// handleFileMetadata returns one file's merged metadata.
func (s *Server) handleFileMetadata(c echo.Context) error {
	var req FileRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	md, err := s.folders.FileMetadata(c.Request().Context(), root, req.FilePath)
	if err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, MetadataResponse{Metadata: md})
}

// handleUpdateMetadata stores one file's metadata.
func (s *Server) handleUpdateMetadata(c echo.Context) error {
	var req UpdateMetadataRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Metadata == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "metadata field is required")
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	if err := s.folders.UpdateMetadata(c.Request().Context(), root, req.FilePath, *req.Metadata); err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Metadata updated successfully"})
}

// handleAllMetadata returns the folder's whole metadata document.
func (s *Server) handleAllMetadata(c echo.Context) error {
	var req FolderRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	snap, err := s.folders.AllMetadata(c.Request().Context(), root)
	if err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, MetadataResponse{Metadata: snap})
}

// handleReplaceAllMetadata overwrites the folder's dump.
func (s *Server) handleReplaceAllMetadata(c echo.Context) error {
	var req ReplaceAllMetadataRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	root, err := s.open(c, req.FolderPath)
	if err != nil {
		return err
	}

	if err := s.folders.ReplaceAllMetadata(c.Request().Context(), root, req.Data); err != nil {
		return folderError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Metadata replaced successfully"})
}
